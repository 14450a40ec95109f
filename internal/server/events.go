package server

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/speech"
)

const (
	EventRender    = "render"
	EventUtterance = "utterance"
	EventCancel    = "cancel"
)

type Event struct {
	Time        time.Time `json:"time"`
	Type        string    `json:"type"`
	UtteranceID string    `json:"id,omitempty"`
	Text        string    `json:"text,omitempty"`
	Voice       string    `json:"voice,omitempty"`
	AudioURL    string    `json:"audio_url,omitempty"`
	CacheHit    bool      `json:"cache_hit,omitempty"`
}

// Hub fans events out to SSE clients. Slow clients miss messages.
type Hub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	history []Event
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[chan []byte]struct{}),
		history: make([]Event, 0, 200),
	}
}

func (h *Hub) Broadcast(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn().Err(err).Str("type", ev.Type).Msg("event encode failed")
		return
	}

	h.mu.Lock()
	if len(h.history) >= 500 {
		h.history = h.history[len(h.history)-400:]
	}
	h.history = append(h.history, ev)

	for ch := range h.clients {
		select {
		case ch <- b:
		default:
			// slow client: drop
		}
	}
	h.mu.Unlock()
}

// PublishSpeech turns speech notices into browser events.
func (h *Hub) PublishSpeech(n speech.Notice) {
	ev := Event{Type: n.Kind}
	if n.Kind == EventUtterance {
		ev.UtteranceID = n.Utterance.ID
		ev.Text = n.Utterance.Text
		if n.Utterance.Voice != nil {
			ev.Voice = n.Utterance.Voice.Name
		}
		if n.AudioPath != "" {
			ev.AudioURL = "/audio/" + filepath.Base(n.AudioPath)
		}
		ev.CacheHit = n.CacheHit
	}
	h.Broadcast(ev)
}

func (h *Hub) History() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.history...)
}

func (h *Hub) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		close(ch)
		h.mu.Unlock()
	}
}
