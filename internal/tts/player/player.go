// Package player plays synthesized audio on the host speaker.
package player

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported format for direct playback; use mp3 or wav")

// Player streams mp3 or wav audio to the speaker.
type Player struct {
	volumeDB float64

	mu         sync.Mutex
	sampleRate beep.SampleRate
}

// New creates a player with a volume offset in dB (negative is quieter).
func New(volumeDB float64) *Player { return &Player{volumeDB: volumeDB} }

// Play blocks until the audio finished or ctx is done.
func (p *Player) Play(ctx context.Context, format string, r io.ReadCloser) error {
	streamer, f, err := decode(format, r)
	if err != nil {
		_ = r.Close()
		return err
	}
	defer streamer.Close()

	if err := p.ensureSpeaker(f.SampleRate); err != nil {
		return err
	}

	vol := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   p.volumeDB,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Stop drops everything the speaker is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	initialized := p.sampleRate != 0
	p.mu.Unlock()
	if initialized {
		speaker.Clear()
	}
}

func (p *Player) ensureSpeaker(sr beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sampleRate == sr {
		return nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return err
	}
	p.sampleRate = sr
	return nil
}

func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(format) {
	case "wav":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}
