package player

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestPlayUnsupportedFormat(t *testing.T) {
	r := &closeTracker{Reader: strings.NewReader("data")}
	err := New(0).Play(context.Background(), "ogg", r)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if !r.closed {
		t.Error("Expected reader to be closed on decode failure")
	}
}

func TestPlayInvalidWav(t *testing.T) {
	r := &closeTracker{Reader: strings.NewReader("not a wav file")}
	if err := New(0).Play(context.Background(), "WAV", r); err == nil {
		t.Error("Expected decode error for garbage wav data")
	}
}

func TestStopBeforeInit(t *testing.T) {
	// must not touch the speaker when it was never initialized
	New(0).Stop()
}
