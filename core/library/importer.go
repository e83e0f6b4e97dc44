package library

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"HipHopLab/core/audio"
	"HipHopLab/core/player"
	"HipHopLab/logger"
	"HipHopLab/model"
	"HipHopLab/repository"
	"HipHopLab/storage"
)

// Importer turns raw audio files into library tracks: metadata extraction,
// durable storage, transient URI allocation and playlist insertion.
type Importer struct {
	store     *player.Store
	tracks    repository.TrackRepository
	blobs     storage.BlobStore
	registry  *Registry
	extractor Extractor
	now       func() time.Time
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithExtractor replaces the tag reader.
func WithExtractor(e Extractor) ImporterOption {
	return func(i *Importer) { i.extractor = e }
}

func NewImporter(store *player.Store, tracks repository.TrackRepository, blobs storage.BlobStore, registry *Registry, opts ...ImporterOption) *Importer {
	i := &Importer{
		store:     store,
		tracks:    tracks,
		blobs:     blobs,
		registry:  registry,
		extractor: TagExtractor{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TitleFromFilename strips the directory and the last extension.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ContentType guesses the MIME type of an audio file.
func ContentType(filename, format string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}

// Import adds one file to the library. Metadata problems never fail the
// import; storage problems do.
func (i *Importer) Import(ctx context.Context, filename string, data []byte) (*model.Track, error) {
	track := &model.Track{
		ID:        uuid.NewString(),
		Title:     TitleFromFilename(filename),
		Artist:    model.UnknownArtist,
		CreatedAt: i.now(),
	}

	meta, err := i.extractor.Extract(data)
	if err != nil {
		logger.Warn("metadata extraction failed, importing with filename only",
			logger.String("file", filename),
			logger.ErrorField(err))
		track.Format = audio.Sniff(data)
	} else {
		i.applyMetadata(track, meta, data)
	}

	track.BlobKey = storage.AudioKey(track.ID)
	if err := i.blobs.Put(ctx, track.BlobKey, data, ContentType(filename, track.Format)); err != nil {
		return nil, fmt.Errorf("storing audio for %s: %w", filename, err)
	}
	if meta != nil && meta.Picture != nil {
		track.CoverKey = storage.CoverKey(track.ID)
		if err := i.blobs.Put(ctx, track.CoverKey, meta.Picture.Data, meta.Picture.MIMEType); err != nil {
			logger.Warn("failed to store cover, continuing without it",
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
			track.CoverKey = ""
		} else {
			track.Cover = i.registry.Register(meta.Picture.Data, meta.Picture.MIMEType)
		}
	}
	track.Src = i.registry.Register(data, ContentType(filename, track.Format))

	i.store.AddTrack(track)
	if err := i.tracks.PutTrack(ctx, track); err != nil {
		logger.Error("failed to persist imported track",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
	}

	logger.Info("track imported",
		logger.String("trackId", track.ID),
		logger.String("title", track.Title),
		logger.Float64("duration", track.Duration))
	return track, nil
}

func (i *Importer) applyMetadata(track *model.Track, meta *Metadata, data []byte) {
	if meta.Title != "" {
		track.Title = meta.Title
	}
	if meta.Artist != "" {
		track.Artist = meta.Artist
	}
	track.Album = meta.Album
	if track.Album == "" {
		track.Album = model.UnknownAlbum
	}
	track.Format = meta.Format
	if track.Format == "" {
		track.Format = audio.Sniff(data)
	}
	track.Bitrate = meta.Bitrate

	track.Duration = meta.Duration
	if track.Duration <= 0 {
		d, err := audio.DecodeDuration(data)
		if err != nil {
			logger.Warn("duration probe failed",
				logger.String("title", track.Title),
				logger.ErrorField(err))
			d = 0
		}
		track.Duration = d
	}
}
