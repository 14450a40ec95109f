package joke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

type Fetcher struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewFetcher(cfg Config, log zerolog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// record mirrors Joke with pointer fields so missing keys can be told apart
// from zero values.
type record struct {
	ID        *int    `json:"id"`
	Type      string  `json:"type"`
	Setup     *string `json:"setup"`
	Punchline *string `json:"punchline"`
}

// Fetch issues one GET to the endpoint and returns the valid records in
// response order. Non-2xx responses yield *HttpError; transport failures are
// wrapped and returned on the same channel.
func (f *Fetcher) Fetch(ctx context.Context) ([]Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch jokes: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jokes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &HttpError{
			Message:    "Http error",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        f.cfg.Endpoint,
		}
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	jokes := f.normalize(raw)
	f.log.Debug().
		Int("received", len(raw)).
		Int("kept", len(jokes)).
		Str("took", time.Since(started).String()).
		Msg("jokes fetched")
	return jokes, nil
}

func (f *Fetcher) normalize(raw []json.RawMessage) []Joke {
	out := make([]Joke, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for i, msg := range raw {
		j, err := parseRecord(msg)
		if err != nil {
			f.log.Warn().Err(err).Int("index", i).Msg("dropping joke record")
			continue
		}
		if seen[j.ID] {
			f.log.Warn().Int("id", j.ID).Msg("dropping duplicate joke id")
			continue
		}
		seen[j.ID] = true
		out = append(out, j)
	}
	return out
}

func parseRecord(msg json.RawMessage) (Joke, error) {
	var r record
	if err := json.Unmarshal(msg, &r); err != nil {
		return Joke{}, err
	}
	if r.ID == nil || *r.ID <= 0 {
		return Joke{}, fmt.Errorf("missing or invalid id")
	}
	if r.Setup == nil || strings.TrimSpace(*r.Setup) == "" {
		return Joke{}, fmt.Errorf("joke %d: empty setup", *r.ID)
	}
	if r.Punchline == nil || strings.TrimSpace(*r.Punchline) == "" {
		return Joke{}, fmt.Errorf("joke %d: empty punchline", *r.ID)
	}
	return Joke{
		ID:        *r.ID,
		Type:      r.Type,
		Setup:     *r.Setup,
		Punchline: *r.Punchline,
	}, nil
}
