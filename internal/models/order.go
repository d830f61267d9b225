package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order mirrors one TikTok Shop order. The primary key is the upstream
// order ID, so re-syncing the same order overwrites the existing row.
type Order struct {
	ID          string `gorm:"primaryKey;type:text"`
	OrderNumber string `gorm:"type:text;uniqueIndex"`
	Status      string `gorm:"type:text;index"`

	CreatedTime   time.Time  `gorm:"type:timestamptz;index"`
	PaidTime      *time.Time `gorm:"type:timestamptz"`
	ShippedTime   *time.Time `gorm:"type:timestamptz"`
	DeliveredTime *time.Time `gorm:"type:timestamptz"`

	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency    string          `gorm:"type:text;default:'GBP'"`
	ItemCount   int

	CustomerID       *string `gorm:"type:text"`
	ShippingProvider *string `gorm:"type:text"`
	TrackingNumber   *string `gorm:"type:text"`

	RawData  datatypes.JSON `gorm:"type:jsonb"`
	SyncedAt time.Time      `gorm:"type:timestamptz;not null;index"`
}

func (Order) TableName() string {
	return "orders"
}
