package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/karlseguin/ccache/v3"
)

// ErrUnsupportedFormat is returned for payloads no decoder recognizes.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Resolver turns a transient source URI into the bytes behind it.
type Resolver interface {
	Resolve(uri string) ([]byte, error)
}

// Sniff names the container of data: "wav", "mp3" or "".
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

// Decode fully decodes data into PCM.
func Decode(data []byte) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch Sniff(data) {
	case "wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case "mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decoding audio: %w", err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decoding audio: %w", err)
	}
	return buf, nil
}

// DecodeDuration decodes data and returns its length in seconds.
func DecodeDuration(data []byte) (float64, error) {
	buf, err := Decode(data)
	if err != nil {
		return 0, err
	}
	return bufferSeconds(buf), nil
}

func bufferSeconds(buf *beep.Buffer) float64 {
	return float64(buf.Len()) / float64(buf.Format().SampleRate)
}

// decodeCache keeps decoded buffers by source URI. Buffers are read-only once
// built, so several streamers may share one.
type decodeCache struct {
	resolver Resolver
	cache    *ccache.Cache[*beep.Buffer]
	ttl      time.Duration
}

func newDecodeCache(resolver Resolver, size int64, ttl time.Duration) *decodeCache {
	return &decodeCache{
		resolver: resolver,
		cache:    ccache.New(ccache.Configure[*beep.Buffer]().MaxSize(size).GetsPerPromote(3).ItemsToPrune(1)),
		ttl:      ttl,
	}
}

func (d *decodeCache) Load(uri string) (*beep.Buffer, error) {
	if d.resolver == nil {
		return nil, fmt.Errorf("no resolver for %q", uri)
	}
	item, err := d.cache.Fetch(uri, d.ttl, func() (*beep.Buffer, error) {
		data, err := d.resolver.Resolve(uri)
		if err != nil {
			return nil, err
		}
		return Decode(data)
	})
	if err != nil {
		return nil, err
	}
	return item.Value(), nil
}

func (d *decodeCache) Forget(uri string) {
	d.cache.Delete(uri)
}

func (d *decodeCache) Stop() {
	d.cache.Stop()
}
