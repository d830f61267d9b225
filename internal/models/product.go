package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product mirrors one TikTok Shop product, keyed by the upstream product ID.
type Product struct {
	ID     string  `gorm:"primaryKey;type:text"`
	Name   string  `gorm:"type:text;not null"`
	SKU    *string `gorm:"type:text;index"`
	Status string  `gorm:"type:text;index"`

	Price         decimal.Decimal `gorm:"type:numeric(10,2)"`
	StockQuantity int

	Category *string `gorm:"type:text"`
	Brand    *string `gorm:"type:text"`
	ImageURL *string `gorm:"type:text"`

	RawData  datatypes.JSON `gorm:"type:jsonb"`
	SyncedAt time.Time      `gorm:"type:timestamptz;not null;index"`
}

func (Product) TableName() string {
	return "products"
}
