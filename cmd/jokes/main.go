package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/aabelikoff/jokes-creator/internal/app"
	"github.com/aabelikoff/jokes-creator/internal/banner"
	"github.com/aabelikoff/jokes-creator/internal/config"
	"github.com/aabelikoff/jokes-creator/internal/dom"
	"github.com/aabelikoff/jokes-creator/internal/joke"
	"github.com/aabelikoff/jokes-creator/internal/server"
	"github.com/aabelikoff/jokes-creator/internal/speech"
	"github.com/aabelikoff/jokes-creator/internal/tts"
	googletts "github.com/aabelikoff/jokes-creator/internal/tts/google"
	"github.com/aabelikoff/jokes-creator/internal/tts/player"
	"github.com/aabelikoff/jokes-creator/internal/voice"
	"github.com/aabelikoff/jokes-creator/internal/widget"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to config YAML")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger

	// Context / shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	page, err := dom.NewContainer(server.PageHTML, "ul.jokes")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse page")
	}
	hub := server.NewHub(log.Logger)

	var (
		engine   *speech.Engine
		provider voice.Provider
	)
	if cfg.Speech.Enabled {
		st, err := buildSpeech(ctx, cfg, hub)
		if err != nil {
			log.Warn().Err(err).Msg("speech unavailable")
		} else {
			engine, provider = st.engine, st.provider
			defer st.close()
		}
	}
	registry := voice.NewRegistry(provider, cfg.Speech.Language, log.Logger)

	// keep the interface nil when there is no engine
	var speaker widget.Speaker
	if engine != nil {
		speaker = engine
	}
	jokes := widget.New(page, registry, speaker, log.Logger)
	notice := banner.New(page, log.Logger)
	fetcher := joke.NewFetcher(joke.Config{
		Endpoint: cfg.Jokes.Endpoint,
		Timeout:  cfg.Jokes.Timeout.ToDuration(),
	}, log.Logger)
	finder := app.New(fetcher, jokes, notice, cfg.Jokes.Timeout.ToDuration(), log.Logger)

	srv := server.New(server.Config{
		Bind:              cfg.Server.Bind,
		Port:              cfg.Server.Port,
		AudioDir:          cfg.Cache.AudioDir,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.ToDuration(),
	}, server.Deps{
		Page:   page,
		Widget: jokes,
		Banner: notice,
		App:    finder,
		Voices: registry,
	}, hub, log.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if engine != nil {
		g.Go(func() error {
			engine.Run(gctx)
			return nil
		})
		g.Go(func() error {
			// failure only means the default voice is used
			_ = registry.Load(gctx)
			return nil
		})
	}

	log.Info().
		Str("ui", srv.Addr()).
		Str("endpoint", cfg.Jokes.Endpoint).
		Bool("speech", engine != nil).
		Str("provider", cfg.Speech.Provider).
		Str("output", cfg.Speech.Output).
		Msg("jokes started")

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shutting down")
}

type speechStack struct {
	engine   *speech.Engine
	provider voice.Provider
	close    func()
}

func buildSpeech(ctx context.Context, cfg config.Config, pub speech.Publisher) (*speechStack, error) {
	st := &speechStack{close: func() {}}

	var backend tts.Backend
	switch cfg.Speech.Provider {
	case "google":
		if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" && cfg.Google.CredentialsPath != "" {
			_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.Google.CredentialsPath)
		}
		gc, err := googletts.New(ctx, googletts.Config{
			Language:     cfg.Google.Language,
			Voice:        cfg.Google.Voice,
			SpeakingRate: cfg.Google.SpeakingRate,
			Pitch:        cfg.Google.Pitch,
			VolumeGainDb: cfg.Google.VolumeGainDb,
		})
		if err != nil {
			return nil, err
		}
		backend, st.provider = gc, gc
		st.close = func() { _ = gc.Close() }
	default:
		oa, err := tts.NewOpenAI(tts.OpenAIConfig{
			APIKey:         strings.TrimSpace(os.Getenv(cfg.OpenAI.APIKeyEnv)),
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.Model,
			Voice:          cfg.OpenAI.Voice,
			ResponseFormat: cfg.OpenAI.ResponseFormat,
			Speed:          cfg.OpenAI.Speed,
			Timeout:        cfg.OpenAI.Timeout.ToDuration(),
		})
		if err != nil {
			return nil, err
		}
		voices := make(voice.Static, 0, len(cfg.OpenAI.Voices))
		for _, v := range cfg.OpenAI.Voices {
			voices = append(voices, voice.Voice{Name: v.Name, Lang: v.Lang})
		}
		backend, st.provider = oa, voices
	}

	// TTS client (with persistent cache)
	client, err := tts.NewClient(tts.Config{
		CacheDir:     cfg.Cache.AudioDir,
		MaxTextChars: cfg.OpenAI.MaxTextChars,
	}, backend, log.Logger)
	if err != nil {
		st.close()
		return nil, err
	}

	var sink speech.Sink
	if cfg.Speech.Output == "local" {
		sink = speech.NewLocalSink(player.New(cfg.Speech.VolumeDB))
	} else {
		sink = speech.NewBrowserSink(pub)
	}
	st.engine = speech.NewEngine(client, sink, log.Logger)
	return st, nil
}
