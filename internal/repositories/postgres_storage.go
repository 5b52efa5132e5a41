package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumematch/scanner-web/internal/models"
)

type postgresTabStorage struct {
	db *gorm.DB
}

func NewPostgresTabStorage(db *gorm.DB) TabStorage {
	return &postgresTabStorage{db: db}
}

// GetItem implements TabStorage.
func (p *postgresTabStorage) GetItem(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScope(scope); err != nil {
		return "", false, err
	}

	var item models.TabItem
	err := p.db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find tab item: %w", err)
	}
	return item.Value, true, nil
}

// SetItem implements TabStorage.
func (p *postgresTabStorage) SetItem(ctx context.Context, scope, key, value string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	item := models.TabItem{
		Scope:     scope,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to save tab item: %w", err)
	}
	return nil
}

// RemoveItem implements TabStorage.
func (p *postgresTabStorage) RemoveItem(ctx context.Context, scope, key string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	err := p.db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		Delete(&models.TabItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete tab item: %w", err)
	}
	return nil
}

// Clear implements TabStorage.
func (p *postgresTabStorage) Clear(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	if err := p.db.WithContext(ctx).Where("scope = ?", scope).Delete(&models.TabItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear tab: %w", err)
	}
	return nil
}

// Touch implements TabStorage.
func (p *postgresTabStorage) Touch(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	err := p.db.WithContext(ctx).
		Model(&models.TabItem{}).
		Where("scope = ?", scope).
		Update("updated_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to touch tab: %w", err)
	}
	return nil
}

// PurgeIdle implements TabStorage.
func (p *postgresTabStorage) PurgeIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := time.Now().Add(-idle)

	var scopes []string
	err := p.db.WithContext(ctx).
		Model(&models.TabItem{}).
		Group("scope").
		Having("MAX(updated_at) < ?", cutoff).
		Pluck("scope", &scopes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find idle tabs: %w", err)
	}

	if len(scopes) == 0 {
		return 0, nil
	}

	if err := p.db.WithContext(ctx).Where("scope IN ?", scopes).Delete(&models.TabItem{}).Error; err != nil {
		return 0, fmt.Errorf("failed to purge idle tabs: %w", err)
	}
	return len(scopes), nil
}
