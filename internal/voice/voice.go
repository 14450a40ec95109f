// Package voice discovers the speech voices a TTS backend offers and keeps
// the ones matching a language family.
package voice

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Provider lists the voices available on a backend.
type Provider interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Static is a Provider backed by a fixed list.
type Static []Voice

func (s Static) Voices(context.Context) ([]Voice, error) {
	return append([]Voice(nil), s...), nil
}

// Registry loads voices exactly once and serves them read-only afterwards.
type Registry struct {
	provider Provider
	prefix   string
	log      zerolog.Logger

	once  sync.Once
	ready chan struct{}
	err   error

	mu     sync.RWMutex
	voices []Voice
	loaded bool

	intn func(n int) int
}

func NewRegistry(p Provider, prefix string, log zerolog.Logger) *Registry {
	return &Registry{
		provider: p,
		prefix:   strings.ToLower(strings.TrimSpace(prefix)),
		log:      log,
		ready:    make(chan struct{}),
		intn:     rand.IntN,
	}
}

// Load queries the provider on the first call and blocks until it answers.
// Later calls return the first call's error without querying again.
func (r *Registry) Load(ctx context.Context) error {
	r.once.Do(func() {
		if r.provider == nil {
			r.err = errors.New("no voice provider")
			return
		}
		all, err := r.provider.Voices(ctx)
		if err != nil {
			r.err = err
			r.log.Warn().Err(err).Msg("voice discovery failed; default voice will be used")
			return
		}

		kept := make([]Voice, 0, len(all))
		for _, v := range all {
			if strings.HasPrefix(strings.ToLower(v.Lang), r.prefix) {
				kept = append(kept, v)
			}
		}

		r.mu.Lock()
		r.voices = kept
		r.loaded = true
		r.mu.Unlock()
		close(r.ready)

		r.log.Info().
			Int("available", len(all)).
			Int("kept", len(kept)).
			Str("prefix", r.prefix).
			Msg("voices loaded")
	})
	return r.err
}

// Ready is closed once voices have been loaded successfully.
func (r *Registry) Ready() <-chan struct{} { return r.ready }

func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

func (r *Registry) Voices() []Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Voice(nil), r.voices...)
}

// Random picks a voice uniformly. It reports false when nothing is loaded.
func (r *Registry) Random() (Voice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded || len(r.voices) == 0 {
		return Voice{}, false
	}
	return r.voices[r.intn(len(r.voices))], true
}
