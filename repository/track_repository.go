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

// TrackRepository defines the durable library operations. ListTracks returns
// tracks in playlist order.
type TrackRepository interface {
	ListTracks(ctx context.Context) ([]*model.Track, error)
	GetTrack(ctx context.Context, id string) (*model.Track, error)
	PutTrack(ctx context.Context, track *model.Track) error
	BulkPutTracks(ctx context.Context, tracks []*model.Track) error
	BulkDeleteTracks(ctx context.Context, ids []string) error
}

// gormTrackRepository implements TrackRepository with GORM.
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a GORM backed track repository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func (r *gormTrackRepository) ListTracks(ctx context.Context) ([]*model.Track, error) {
	var rows []trackRow
	if err := r.db.WithContext(ctx).Order("position ASC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	tracks := make([]*model.Track, len(rows))
	for i := range rows {
		tracks[i] = rows[i].toModel()
	}
	return tracks, nil
}

// GetTrack returns nil, nil when the track does not exist.
func (r *gormTrackRepository) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	var row trackRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return row.toModel(), nil
}

// PutTrack upserts one track. A new track is placed after every stored one;
// an existing track keeps its position.
func (r *gormTrackRepository) PutTrack(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing trackRow
		err := tx.Select("position").Where("id = ?", track.ID).First(&existing).Error
		position := existing.Position
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var maxPos *int
			if err := tx.Model(&trackRow{}).Select("MAX(position)").Scan(&maxPos).Error; err != nil {
				return fmt.Errorf("failed to read max position: %w", err)
			}
			position = 0
			if maxPos != nil {
				position = *maxPos + 1
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up track %s: %w", track.ID, err)
		}

		row := newTrackRow(track, position)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to put track %s: %w", track.ID, err)
		}
		return nil
	})
}

// BulkPutTracks upserts tracks with positions taken from their slice order.
func (r *gormTrackRepository) BulkPutTracks(ctx context.Context, tracks []*model.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	rows := make([]trackRow, len(tracks))
	for i, t := range tracks {
		rows[i] = newTrackRow(t, i)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(&rows, 100).Error
	if err != nil {
		return fmt.Errorf("failed to bulk put %d tracks: %w", len(tracks), err)
	}
	return nil
}

func (r *gormTrackRepository) BulkDeleteTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&trackRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete %d tracks: %w", len(ids), err)
	}
	return nil
}

// trackRow is the stored form of a model.Track. Transient URIs are never
// persisted.
type trackRow struct {
	ID              string     `gorm:"primaryKey;size:36"`
	Position        int        `gorm:"index;not null;default:0"`
	Title           string     `gorm:"size:255;not null"`
	Artist          string     `gorm:"size:255"`
	Album           string     `gorm:"size:255"`
	BlobKey         string     `gorm:"size:255"`
	CoverKey        string     `gorm:"size:255"`
	Duration        float64    `gorm:"not null;default:0"`
	Format          string     `gorm:"size:32"`
	Bitrate         int        `gorm:"default:0"`
	Lyrics          LyricLines `gorm:"type:json"`
	BackgroundImage string     `gorm:"size:1024"`
	VisualizerMode  string     `gorm:"size:64"`
	CustomEQ        Gains      `gorm:"type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName sets the table name.
func (trackRow) TableName() string {
	return "tracks"
}

func newTrackRow(t *model.Track, position int) trackRow {
	return trackRow{
		ID:              t.ID,
		Position:        position,
		Title:           t.Title,
		Artist:          t.Artist,
		Album:           t.Album,
		BlobKey:         t.BlobKey,
		CoverKey:        t.CoverKey,
		Duration:        t.Duration,
		Format:          t.Format,
		Bitrate:         t.Bitrate,
		Lyrics:          LyricLines(t.Lyrics),
		BackgroundImage: t.BackgroundImage,
		VisualizerMode:  t.VisualizerMode,
		CustomEQ:        Gains(t.CustomEQ),
		CreatedAt:       t.CreatedAt,
	}
}

func (r *trackRow) toModel() *model.Track {
	return &model.Track{
		ID:              r.ID,
		Title:           r.Title,
		Artist:          r.Artist,
		Album:           r.Album,
		BlobKey:         r.BlobKey,
		CoverKey:        r.CoverKey,
		Duration:        r.Duration,
		Format:          r.Format,
		Bitrate:         r.Bitrate,
		Lyrics:          []model.LyricLine(r.Lyrics),
		BackgroundImage: r.BackgroundImage,
		VisualizerMode:  r.VisualizerMode,
		CustomEQ:        []float64(r.CustomEQ),
		CreatedAt:       r.CreatedAt,
	}
}
