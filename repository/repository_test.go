package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HipHopLab/model"
)

var (
	_ TrackRepository    = (*MemoryRepository)(nil)
	_ SettingsRepository = (*MemoryRepository)(nil)
)

func TestMemoryPutTrackAppendsAndKeepsPosition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.PutTrack(ctx, &model.Track{ID: "a", Title: "A", Src: "blob:1"}))
	require.NoError(t, repo.PutTrack(ctx, &model.Track{ID: "b", Title: "B"}))
	require.NoError(t, repo.PutTrack(ctx, &model.Track{ID: "a", Title: "A2"}))

	tracks, err := repo.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].ID)
	assert.Equal(t, "A2", tracks[0].Title)
	assert.Empty(t, tracks[0].Src)
	assert.Equal(t, "b", tracks[1].ID)
}

func TestMemoryBulkPutReordersAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a := &model.Track{ID: "a"}
	b := &model.Track{ID: "b"}
	c := &model.Track{ID: "c"}

	require.NoError(t, repo.BulkPutTracks(ctx, []*model.Track{a, b, c}))
	require.NoError(t, repo.BulkPutTracks(ctx, []*model.Track{c, a}))
	require.NoError(t, repo.BulkDeleteTracks(ctx, []string{"b", "missing"}))

	tracks, err := repo.ListTracks(ctx)
	require.NoError(t, err)
	ids := make([]string, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.ID
	}
	assert.Equal(t, []string{"c", "a"}, ids)

	got, err := repo.GetTrack(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.PutTrack(ctx, &model.Track{ID: "a", CustomEQ: []float64{1, 2}}))

	got, err := repo.GetTrack(ctx, "a")
	require.NoError(t, err)
	got.CustomEQ[0] = 99

	again, err := repo.GetTrack(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, again.CustomEQ)
}

func TestMemorySettings(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	got, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	in := &model.Settings{Language: model.LanguageEn, Volume: 0.4, EQGains: make([]float64, 10)}
	require.NoError(t, repo.PutSettings(ctx, in))
	in.EQGains[0] = 5

	got, err = repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SettingsID, got.ID)
	assert.Equal(t, model.LanguageEn, got.Language)
	assert.Zero(t, got.EQGains[0])
}

func TestJSONColumns(t *testing.T) {
	lines := LyricLines{{Time: 1.5, Text: "hi"}}
	v, err := lines.Value()
	require.NoError(t, err)

	var back LyricLines
	require.NoError(t, back.Scan(v))
	assert.Equal(t, lines, back)

	require.NoError(t, back.Scan("null"))
	assert.Nil(t, back)

	var gains Gains
	require.NoError(t, gains.Scan([]byte("[1,2.5]")))
	assert.Equal(t, Gains{1, 2.5}, gains)
	require.NoError(t, gains.Scan(nil))
	assert.Nil(t, gains)

	v, err = Gains(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTrackRowRoundTripDropsTransientURIs(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &model.Track{
		ID: "a", Title: "T", Artist: "Ar", Src: "blob:x", Cover: "blob:y",
		BlobKey: "audio/a", CoverKey: "covers/a", Duration: 12.5,
		Lyrics:   []model.LyricLine{{Time: 1, Text: "x"}},
		CustomEQ: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		CreatedAt: created,
	}
	row := newTrackRow(in, 7)
	assert.Equal(t, 7, row.Position)

	out := row.toModel()
	assert.Empty(t, out.Src)
	assert.Empty(t, out.Cover)
	assert.Equal(t, in.BlobKey, out.BlobKey)
	assert.Equal(t, in.Lyrics, out.Lyrics)
	assert.Equal(t, in.CustomEQ, out.CustomEQ)
	assert.Equal(t, created, out.CreatedAt)
}

func TestSettingsRowForcesSingletonID(t *testing.T) {
	row := newSettingsRow(&model.Settings{ID: 42, Language: model.LanguageZh, PreservesPitch: true})
	assert.Equal(t, model.SettingsID, row.ID)
	assert.True(t, row.toModel().PreservesPitch)
	assert.Len(t, Models(), 2)
}
