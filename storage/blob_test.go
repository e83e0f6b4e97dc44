package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	data := []byte("audio")
	require.NoError(t, m.Put(ctx, "audio/a", data, "audio/mpeg"))
	data[0] = 'X'

	got, err := m.Get(ctx, "audio/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), got, "stored bytes are copied")

	require.NoError(t, m.Put(ctx, "covers/a", []byte("img"), "image/jpeg"))
	assert.Equal(t, []string{"audio/a", "covers/a"}, m.Keys())

	require.NoError(t, m.Delete(ctx, "audio/a", "missing"))
	_, err = m.Get(ctx, "audio/a")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "audio/t1", AudioKey("t1"))
	assert.Equal(t, "covers/t1", CoverKey("t1"))
}
