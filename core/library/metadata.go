package library

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"HipHopLab/core/audio"
)

// Picture is an embedded cover image.
type Picture struct {
	MIMEType string
	Data     []byte
}

// Metadata is what an Extractor could learn about an audio payload. Every
// field is optional.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Picture  *Picture
	Duration float64 // seconds, 0 when unknown
	Format   string
	Bitrate  int // bps, 0 when unknown
}

// Extractor reads metadata from a raw audio payload.
type Extractor interface {
	Extract(data []byte) (*Metadata, error)
}

// TagExtractor reads ID3/MP4/FLAC/Ogg tags with dhowden/tag and measures MP3
// streams frame by frame.
type TagExtractor struct{}

func (TagExtractor) Extract(data []byte) (*Metadata, error) {
	meta := &Metadata{Format: audio.Sniff(data)}

	m, err := tag.ReadFrom(bytes.NewReader(data))
	switch {
	case err == nil:
		meta.Title = strings.TrimSpace(m.Title())
		meta.Artist = strings.TrimSpace(m.Artist())
		meta.Album = strings.TrimSpace(m.Album())
		if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
			meta.Picture = &Picture{MIMEType: pic.MIMEType, Data: pic.Data}
		}
		if ft := m.FileType(); ft != tag.UnknownFileType && meta.Format == "" {
			meta.Format = strings.ToLower(string(ft))
		}
	case errors.Is(err, tag.ErrNoTagsFound):
		// untagged files are fine
	default:
		return nil, err
	}

	if meta.Format == "mp3" {
		if d, br, err := scanMP3(data); err == nil {
			meta.Duration, meta.Bitrate = d, br
		}
	}
	return meta, nil
}

// scanMP3 walks the MPEG frames, returning the total duration in seconds and
// the average bitrate.
func scanMP3(data []byte) (float64, int, error) {
	d := mp3.NewDecoder(bytes.NewReader(data))
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		size    int
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, 0, err
		}
		total += frame.Duration()
		size += frame.Size()
	}
	seconds := total.Seconds()
	if seconds <= 0 {
		return 0, 0, errors.New("no mpeg frames")
	}
	return seconds, int(float64(size*8) / seconds), nil
}
