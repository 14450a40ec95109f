// Package tts turns text into audio files, cached on disk by content.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aabelikoff/jokes-creator/internal/voice"
)

// Backend synthesizes one phrase. A zero Voice selects the backend default.
type Backend interface {
	Name() string
	Format() string
	Synthesize(ctx context.Context, text string, v voice.Voice) ([]byte, error)
}

type Config struct {
	CacheDir     string
	MaxTextChars int
}

type Client struct {
	cfg     Config
	backend Backend
	log     zerolog.Logger

	sf singleflight.Group
}

type SpeakResult struct {
	Path     string
	CacheHit bool
}

func NewClient(cfg Config, backend Backend, log zerolog.Logger) (*Client, error) {
	if backend == nil {
		return nil, errors.New("missing tts backend")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./cache/audio"
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = 500
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, err
	}

	return &Client{
		cfg:     cfg,
		backend: backend,
		log:     log,
	}, nil
}

func (c *Client) SpeakToFile(ctx context.Context, text string, v voice.Voice) (SpeakResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SpeakResult{}, errors.New("empty tts text")
	}
	if r := []rune(text); len(r) > c.cfg.MaxTextChars {
		text = string(r[:c.cfg.MaxTextChars])
	}

	key := c.cacheKey(text, v)
	finalPath := filepath.Join(c.cfg.CacheDir, key+"."+extensionFromFormat(c.backend.Format()))

	// fast path
	if fileExists(finalPath) {
		return SpeakResult{Path: finalPath, CacheHit: true}, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		// double-check after singleflight
		if fileExists(finalPath) {
			return SpeakResult{Path: finalPath, CacheHit: true}, nil
		}

		started := time.Now()
		audio, err := c.backend.Synthesize(ctx, text, v)
		if err != nil {
			return SpeakResult{}, err
		}
		if len(audio) == 0 {
			return SpeakResult{}, errors.New("empty audio response")
		}

		tmp := fmt.Sprintf("%s.tmp-%d-%d", finalPath, time.Now().UnixNano(), rand.Intn(999999))
		if err := os.WriteFile(tmp, audio, 0o644); err != nil {
			return SpeakResult{}, err
		}
		// atomic replace
		if err := os.Rename(tmp, finalPath); err != nil {
			_ = os.Remove(tmp)
			return SpeakResult{}, err
		}

		c.log.Debug().
			Str("backend", c.backend.Name()).
			Str("voice", v.Name).
			Str("took", time.Since(started).String()).
			Msg("speech synthesized")
		return SpeakResult{Path: finalPath}, nil
	})
	if err != nil {
		return SpeakResult{}, err
	}
	return res.(SpeakResult), nil
}

func (c *Client) Format() string { return extensionFromFormat(c.backend.Format()) }

func (c *Client) cacheKey(text string, v voice.Voice) string {
	raw := c.backend.Name() + "|" + v.Name + "|" + v.Lang + "|" + text
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func extensionFromFormat(f string) string {
	switch f = strings.ToLower(strings.TrimSpace(f)); f {
	case "mp3", "wav", "aac", "opus", "flac", "pcm":
		return f
	default:
		return "mp3"
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !st.IsDir() && st.Size() > 0
}
