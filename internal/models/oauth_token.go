package models

import "time"

// OAuthToken stores the TikTok Shop credential pair for one shop.
// Access and refresh tokens are encrypted at rest (AES-GCM).
type OAuthToken struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ShopID       string    `gorm:"type:text;not null;uniqueIndex"`
	ShopName     *string   `gorm:"type:text"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text;not null"`
	ExpiresAt    time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}
