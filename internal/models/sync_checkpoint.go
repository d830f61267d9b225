package models

import "time"

// SyncCheckpoint records the completion state of the most recent sync run
// for one entity type. Exactly one row per sync_type; the orchestrator
// overwrites it after every completed run and nothing else mutates it.
type SyncCheckpoint struct {
	SyncType       string     `gorm:"primaryKey;type:text" json:"sync_type"`
	LastSyncTime   time.Time  `gorm:"type:timestamptz;not null" json:"last_sync_time"`
	LastRecordTime *time.Time `gorm:"type:timestamptz" json:"last_record_time"`
	RecordsSynced  int        `gorm:"not null;default:0" json:"records_synced"`
	IsFullSync     bool       `gorm:"not null;default:false" json:"is_full_sync"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (SyncCheckpoint) TableName() string {
	return "sync_checkpoints"
}
