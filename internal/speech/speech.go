// Package speech queues utterances, synthesizes them and hands the audio to
// a sink. Cancel drops everything pending or playing.
package speech

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/tts"
	"github.com/aabelikoff/jokes-creator/internal/voice"
)

// Utterance is one synthesized phrase. A nil Voice means the backend default.
type Utterance struct {
	ID    string
	Text  string
	Voice *voice.Voice
}

func NewUtterance(text string, v *voice.Voice) Utterance {
	return Utterance{ID: uuid.NewString(), Text: text, Voice: v}
}

// Synthesizer renders text to an audio file.
type Synthesizer interface {
	SpeakToFile(ctx context.Context, text string, v voice.Voice) (tts.SpeakResult, error)
	Format() string
}

// Sink receives synthesized utterances. Play may block until playback ends.
type Sink interface {
	Play(ctx context.Context, u Utterance, audio tts.SpeakResult, format string) error
	Stop()
}

type Engine struct {
	synth Synthesizer
	sink  Sink
	log   zerolog.Logger

	// playMu orders sink.Play against sink.Stop so a cancelled utterance is
	// never handed to the sink after Stop.
	playMu sync.Mutex

	mu      sync.Mutex
	queue   []queued
	gen     uint64
	cancel  context.CancelFunc
	wake    chan struct{}
	running bool
}

type queued struct {
	u   Utterance
	gen uint64
}

func NewEngine(synth Synthesizer, sink Sink, log zerolog.Logger) *Engine {
	return &Engine{
		synth: synth,
		sink:  sink,
		log:   log,
		wake:  make(chan struct{}, 1),
	}
}

// Speak enqueues one utterance behind anything already pending.
func (e *Engine) Speak(u Utterance) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	e.mu.Lock()
	e.queue = append(e.queue, queued{u: u, gen: e.gen})
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Cancel drops pending utterances, aborts the one in flight and stops the sink.
func (e *Engine) Cancel() {
	e.mu.Lock()
	e.gen++
	dropped := len(e.queue)
	e.queue = nil
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()

	e.playMu.Lock()
	e.sink.Stop()
	e.playMu.Unlock()
	if dropped > 0 {
		e.log.Debug().Int("dropped", dropped).Msg("speech cancelled")
	}
}

// Pending reports how many utterances wait to be processed.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Run processes queued utterances one at a time until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	for {
		item, uctx, ok := e.next(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-e.wake:
			}
			continue
		}
		e.process(uctx, item)
		e.release(item.gen)
	}
}

// next pops the head of the queue and binds it to a cancellable context.
func (e *Engine) next(ctx context.Context) (queued, context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil || len(e.queue) == 0 {
		return queued{}, nil, false
	}
	item := e.queue[0]
	e.queue = e.queue[1:]

	uctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	return item, uctx, true
}

func (e *Engine) release(gen uint64) {
	e.mu.Lock()
	if e.gen == gen && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *Engine) process(ctx context.Context, item queued) {
	var v voice.Voice
	if item.u.Voice != nil {
		v = *item.u.Voice
	}

	res, err := e.synth.SpeakToFile(ctx, item.u.Text, v)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Error().Err(err).Str("utterance", item.u.ID).Msg("speech synthesis failed")
		}
		return
	}
	e.playMu.Lock()
	defer e.playMu.Unlock()
	if !e.current(item.gen) {
		return
	}

	if err := e.sink.Play(ctx, item.u, res, e.synth.Format()); err != nil && ctx.Err() == nil {
		e.log.Error().Err(err).Str("utterance", item.u.ID).Msg("speech playback failed")
	}
}
