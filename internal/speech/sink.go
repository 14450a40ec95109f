package speech

import (
	"context"
	"io"
	"os"

	"github.com/aabelikoff/jokes-creator/internal/tts"
)

// Notice is what the browser sink publishes.
type Notice struct {
	Kind      string // utterance, cancel
	Utterance Utterance
	AudioPath string
	CacheHit  bool
}

type Publisher interface {
	PublishSpeech(n Notice)
}

// BrowserSink hands audio to connected browsers, which keep their own
// playback queue.
type BrowserSink struct {
	pub Publisher
}

func NewBrowserSink(pub Publisher) *BrowserSink { return &BrowserSink{pub: pub} }

func (b *BrowserSink) Play(ctx context.Context, u Utterance, audio tts.SpeakResult, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.pub.PublishSpeech(Notice{Kind: "utterance", Utterance: u, AudioPath: audio.Path, CacheHit: audio.CacheHit})
	return nil
}

func (b *BrowserSink) Stop() {
	b.pub.PublishSpeech(Notice{Kind: "cancel"})
}

// AudioPlayer plays a decoded stream on the host.
type AudioPlayer interface {
	Play(ctx context.Context, format string, r io.ReadCloser) error
	Stop()
}

// LocalSink plays audio on the machine running the service.
type LocalSink struct {
	player AudioPlayer
}

func NewLocalSink(p AudioPlayer) *LocalSink { return &LocalSink{player: p} }

func (l *LocalSink) Play(ctx context.Context, _ Utterance, audio tts.SpeakResult, format string) error {
	f, err := os.Open(audio.Path)
	if err != nil {
		return err
	}
	return l.player.Play(ctx, format, f)
}

func (l *LocalSink) Stop() { l.player.Stop() }
