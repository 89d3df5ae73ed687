package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetPreference upserts the value stored under (session, key).
func (p *PostgresClient) SetPreference(ctx context.Context, session, key, value string) error {
	record := &PreferenceRecord{
		SessionID: session,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "session_id"},
			{Name: "key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(record)

	if tx.Error != nil {
		return fmt.Errorf("upsert preference session=%s key=%s: %w", session, key, tx.Error)
	}
	return nil
}

// GetPreference returns the stored value, or "" when nothing is stored.
func (p *PostgresClient) GetPreference(ctx context.Context, session, key string) (string, error) {
	var record PreferenceRecord
	err := p.DB.WithContext(ctx).
		Where("session_id = ? AND key = ?", session, key).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference session=%s key=%s: %w", session, key, err)
	}
	return record.Value, nil
}

// DeleteStalePreferences removes preferences not updated since before and
// returns how many rows were deleted.
func (p *PostgresClient) DeleteStalePreferences(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("updated_at < ?", before.UTC()).
		Delete(&PreferenceRecord{})
	return tx.RowsAffected, tx.Error
}
