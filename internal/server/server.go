package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/app"
	"github.com/aabelikoff/jokes-creator/internal/dom"
	"github.com/aabelikoff/jokes-creator/internal/joke"
	"github.com/aabelikoff/jokes-creator/internal/voice"
	"github.com/aabelikoff/jokes-creator/internal/widget"
)

type Config struct {
	Bind              string
	Port              int
	AudioDir          string
	ReadHeaderTimeout time.Duration
}

type Finder interface {
	FindJokes(ctx context.Context) (app.Result, error)
}

type JokeWidget interface {
	Jokes() []joke.Joke
	HoverEnter(id int) error
	HoverLeave(id int) error
	Listen(id int) error
}

type Dismisser interface {
	Dismiss() bool
}

type VoiceList interface {
	Loaded() bool
	Voices() []voice.Voice
}

// Deps are the page pieces the routes act on.
type Deps struct {
	Page   *dom.Container
	Widget JokeWidget
	Banner Dismisser
	App    Finder
	Voices VoiceList
}

type Server struct {
	cfg  Config
	deps Deps
	hub  *Hub
	log  zerolog.Logger
}

func New(cfg Config, deps Deps, hub *Hub, log zerolog.Logger) *Server {
	if cfg.Bind == "" {
		cfg.Bind = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8092
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = "./cache/audio"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if hub == nil {
		hub = NewHub(log)
	}
	_ = os.MkdirAll(cfg.AudioDir, 0o755)

	return &Server{cfg: cfg, deps: deps, hub: hub, log: log}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("http://%s:%d", s.cfg.Bind, s.cfg.Port)
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	// UI
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/app.js", s.handleAppJS).Methods(http.MethodGet)

	// SSE stream and its history
	r.HandleFunc("/events", s.handleSSE).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleEventsJSON).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jokes", s.handleJokesJSON).Methods(http.MethodGet)
	api.HandleFunc("/jokes/list", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/jokes/find", s.handleFind).Methods(http.MethodPost)
	api.HandleFunc("/jokes/{id}/hover", s.handleHoverEnter).Methods(http.MethodPost)
	api.HandleFunc("/jokes/{id}/hover", s.handleHoverLeave).Methods(http.MethodDelete)
	api.HandleFunc("/jokes/{id}/listen", s.handleListen).Methods(http.MethodPost)
	api.HandleFunc("/error/dismiss", s.handleDismiss).Methods(http.MethodPost)
	api.HandleFunc("/voices", s.handleVoices).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve cached audio files
	audioFS := http.FileServer(http.Dir(s.cfg.AudioDir))
	r.PathPrefix("/audio/").Handler(http.StripPrefix("/audio/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// prevent directory listing patterns
		if r.URL.Path == "" || r.URL.Path == "/" {
			http.NotFound(w, r)
			return
		}
		// basic traversal protection
		clean := filepath.Clean(r.URL.Path)
		if clean == "." || clean == ".." || clean[0] == '/' || clean == `\` || clean != filepath.Base(clean) {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		audioFS.ServeHTTP(w, r)
	}))).Methods(http.MethodGet, http.MethodHead)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	// shutdown
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCh, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	// no replay: old utterances must not play again in a new tab
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	notify := r.Context().Done()
	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-notify:
			return
		case <-keepAlive.C:
			// comment line keeps connection alive
			fmt.Fprintf(w, ": ping %d\n\n", time.Now().Unix())
			flusher.Flush()
		case msg := <-clientCh:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) handleEventsJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.hub.History()})
}

func (s *Server) handleJokesJSON(w http.ResponseWriter, r *http.Request) {
	jokes := s.deps.Widget.Jokes()
	if jokes == nil {
		jokes = []joke.Joke{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jokes": jokes})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeFragment(w, http.StatusOK)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.App.FindJokes(r.Context())
	// the caller that ran the fetch announces it
	if !res.Shared {
		s.hub.Broadcast(Event{Type: EventRender})
	}
	if err != nil {
		s.writeFragment(w, http.StatusBadGateway)
		return
	}
	w.Header().Set("X-Jokes-Count", strconv.Itoa(res.Count))
	s.writeFragment(w, http.StatusOK)
}

func (s *Server) handleHoverEnter(w http.ResponseWriter, r *http.Request) {
	s.jokeAction(w, r, s.deps.Widget.HoverEnter)
}

func (s *Server) handleHoverLeave(w http.ResponseWriter, r *http.Request) {
	s.jokeAction(w, r, s.deps.Widget.HoverLeave)
}

func (s *Server) jokeAction(w http.ResponseWriter, r *http.Request, fn func(int) error) {
	id, ok := jokeID(w, r)
	if !ok {
		return
	}
	if err := fn(id); err != nil {
		s.jokeError(w, id, err)
		return
	}
	s.writeFragment(w, http.StatusOK)
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	id, ok := jokeID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Widget.Listen(id); err != nil {
		s.jokeError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if s.deps.Banner.Dismiss() {
		s.hub.Broadcast(Event{Type: EventRender})
	}
	s.writeFragment(w, http.StatusOK)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	loaded := false
	voices := []voice.Voice{}
	if s.deps.Voices != nil {
		loaded = s.deps.Voices.Loaded()
		if v := s.deps.Voices.Voices(); v != nil {
			voices = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loaded": loaded, "voices": voices})
}

func (s *Server) jokeError(w http.ResponseWriter, id int, err error) {
	if errors.Is(err, widget.ErrJokeNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.log.Error().Err(err).Int("id", id).Msg("joke action failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeFragment(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(s.deps.Page.InnerHTML()))
}

func jokeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "bad joke id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
