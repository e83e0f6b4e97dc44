package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"HipHopLab/model"
)

// SettingsRepository persists the singleton settings record.
type SettingsRepository interface {
	// GetSettings returns nil, nil when nothing has been stored yet.
	GetSettings(ctx context.Context) (*model.Settings, error)
	PutSettings(ctx context.Context, settings *model.Settings) error
}

type gormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a GORM backed settings repository.
func NewGormSettingsRepository(db *gorm.DB) SettingsRepository {
	return &gormSettingsRepository{db: db}
}

func (r *gormSettingsRepository) GetSettings(ctx context.Context) (*model.Settings, error) {
	var row settingsRow
	err := r.db.WithContext(ctx).Where("id = ?", model.SettingsID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return row.toModel(), nil
}

func (r *gormSettingsRepository) PutSettings(ctx context.Context, settings *model.Settings) error {
	row := newSettingsRow(settings)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to put settings: %w", err)
	}
	return nil
}

type settingsRow struct {
	ID                     int     `gorm:"primaryKey;autoIncrement:false"`
	Language               string  `gorm:"size:8;default:'zh'"`
	Volume                 float64 `gorm:"not null;default:1"`
	PlaybackRate           float64 `gorm:"not null;default:1"`
	PreservesPitch         bool    `gorm:"not null;default:true"`
	EQGains                Gains   `gorm:"type:json"`
	DefaultBackgroundImage string  `gorm:"size:1024"`
	DefaultVisualizerMode  string  `gorm:"size:64"`
	UpdatedAt              time.Time
}

// TableName sets the table name.
func (settingsRow) TableName() string {
	return "settings"
}

// newSettingsRow always keys the row by SettingsID.
func newSettingsRow(s *model.Settings) settingsRow {
	return settingsRow{
		ID:                     model.SettingsID,
		Language:               string(s.Language),
		Volume:                 s.Volume,
		PlaybackRate:           s.PlaybackRate,
		PreservesPitch:         s.PreservesPitch,
		EQGains:                Gains(s.EQGains),
		DefaultBackgroundImage: s.DefaultBackgroundImage,
		DefaultVisualizerMode:  s.DefaultVisualizerMode,
	}
}

func (r *settingsRow) toModel() *model.Settings {
	return &model.Settings{
		ID:                     r.ID,
		Language:               model.Language(r.Language),
		Volume:                 r.Volume,
		PlaybackRate:           r.PlaybackRate,
		PreservesPitch:         r.PreservesPitch,
		EQGains:                []float64(r.EQGains),
		DefaultBackgroundImage: r.DefaultBackgroundImage,
		DefaultVisualizerMode:  r.DefaultVisualizerMode,
	}
}

// Models lists the row types to migrate.
func Models() []interface{} {
	return []interface{}{&trackRow{}, &settingsRow{}}
}
