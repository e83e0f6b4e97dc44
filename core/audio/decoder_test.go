package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	assert.Equal(t, "wav", Sniff([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")))
	assert.Equal(t, "mp3", Sniff([]byte("ID3\x04\x00")))
	assert.Equal(t, "mp3", Sniff([]byte{0xFF, 0xFB, 0x90, 0x00}))
	assert.Equal(t, "", Sniff([]byte("fLaC")))
	assert.Equal(t, "", Sniff(nil))
}

func TestDecodeWav(t *testing.T) {
	data := wavTone(t, 8000, 1.5, 440, 0.5)
	buf, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 12000, buf.Len())
	assert.EqualValues(t, 8000, buf.Format().SampleRate)

	d, err := DecodeDuration(data)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, d, 1e-9)
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("OggS not really"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeCacheHitsResolverOnce(t *testing.T) {
	res := newMapResolver()
	res.put("blob:a", wavTone(t, 8000, 0.1, 440, 0.5))
	c := newDecodeCache(res, 4, time.Minute)
	defer c.Stop()

	first, err := c.Load("blob:a")
	require.NoError(t, err)
	second, err := c.Load("blob:a")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, res.callCount("blob:a"))

	c.Forget("blob:a")
	_, err = c.Load("blob:a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.callCount("blob:a"))

	_, err = c.Load("blob:missing")
	assert.Error(t, err)
}
