package postgres

import "time"

// PreferenceRecord is one persisted per-session setting.
type PreferenceRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	SessionID string `gorm:"type:varchar(64);not null;index:idx_preference_session_key,unique"`
	Key       string `gorm:"type:varchar(64);not null;index:idx_preference_session_key,unique"`

	Value string `gorm:"type:text;not null"`

	UpdatedAt time.Time `gorm:"not null;index:idx_preference_updated_at"`
}

// TableName overrides the default table name for GORM.
func (PreferenceRecord) TableName() string {
	return "preference_record"
}
