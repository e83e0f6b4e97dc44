package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockingLoader(release <-chan struct{}, buf *beep.Buffer) loader {
	return func(string) (*beep.Buffer, error) {
		<-release
		if buf == nil {
			return nil, errors.New("no data")
		}
		return buf, nil
	}
}

func recv(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatal("play outcome never resolved")
		return nil
	}
}

func TestPlayWithoutSource(t *testing.T) {
	el := newElement(testRate, nil, nil)
	assert.ErrorIs(t, recv(t, el.Play()), ErrNoSource)
}

func TestSourceSwapAbortsPendingPlay(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	el := newElement(testRate, blockingLoader(release, nil), nil)

	el.SetSrc("blob:a")
	first := el.Play()
	el.SetSrc("blob:b")
	assert.ErrorIs(t, recv(t, first), ErrPlayAborted)

	second := el.Play()
	el.Pause()
	assert.ErrorIs(t, recv(t, second), ErrPlayAborted)
}

func TestPendingPlayResolvesOnLoad(t *testing.T) {
	buf, err := Decode(wavTone(t, 8000, 0.5, 440, 0.5))
	require.NoError(t, err)
	release := make(chan struct{})
	var events []EventType
	el := newElement(testRate, blockingLoader(release, buf), func(ev Event) { events = append(events, ev.Type) })

	el.SetSrc("blob:a")
	pending := el.Play()
	close(release)
	assert.NoError(t, recv(t, pending))
	assert.InDelta(t, 0.5, el.Duration(), 1e-9)
	assert.Equal(t, []EventType{EventLoadedMetadata}, events)
}

func TestLoadFailureResolvesPlay(t *testing.T) {
	var got []Event
	el := newElement(testRate, func(string) (*beep.Buffer, error) {
		return nil, errors.New("gone")
	}, func(ev Event) { got = append(got, ev) })

	el.SetSrc("blob:a")
	err := recv(t, el.Play())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPlayAborted)
	assert.True(t, el.Paused())
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Type)
}

func TestEndedElementRestartsOnPlay(t *testing.T) {
	buf, err := Decode(wavTone(t, 8000, 0.1, 440, 0.5))
	require.NoError(t, err)
	el := newElement(testRate, func(string) (*beep.Buffer, error) { return buf, nil }, nil)
	el.SetSrc("blob:a")
	require.NoError(t, recv(t, el.Play()))

	el.Stream(make([][2]float64, testRate))
	assert.True(t, el.Ended())
	assert.True(t, el.Paused())

	require.NoError(t, recv(t, el.Play()))
	assert.False(t, el.Ended())
	assert.Zero(t, el.CurrentTime())
}
