package lyric

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when the host clipboard cannot be read.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// clipboardRead is swapped in tests.
var clipboardRead = readHostClipboard

func readHostClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", errors.New("no clipboard utility on this host")
	}
	return clipboard.ReadAll()
}

// ReadClipboard reads the host clipboard without blocking past ctx.
func ReadClipboard(ctx context.Context) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := clipboardRead()
		ch <- result{text, err}
	}()
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("reading clipboard: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("%w: %v", ErrClipboardUnavailable, r.err)
		}
		return r.text, nil
	}
}
