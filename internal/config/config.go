package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

type Duration time.Duration

func (d Duration) ToDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*d = 0
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}

	// allow: "5s", "2m", or integer seconds
	switch value.Tag {
	case "!!int":
		i, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	default:
		return d.parse(value.Value)
	}
}

// UnmarshalText lets env overrides use the same syntax as the YAML file.
func (d *Duration) UnmarshalText(text []byte) error {
	return d.parse(string(text))
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if dur, err := time.ParseDuration(s); err == nil {
		*d = Duration(dur)
		return nil
	}
	// numeric string = seconds
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration: %q", s)
}

type Config struct {
	LogLevel string       `yaml:"log_level" env:"JOKES_LOG_LEVEL"`
	Server   ServerConfig `yaml:"server"`
	Jokes    JokesConfig  `yaml:"jokes"`
	Speech   SpeechConfig `yaml:"speech"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Google   GoogleConfig `yaml:"google"`
	Cache    CacheConfig  `yaml:"cache"`
}

type ServerConfig struct {
	Bind              string   `yaml:"bind" env:"JOKES_BIND"`
	Port              int      `yaml:"port" env:"JOKES_PORT"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" env:"JOKES_READ_HEADER_TIMEOUT"`
}

type JokesConfig struct {
	Endpoint string   `yaml:"endpoint" env:"JOKES_ENDPOINT"`
	Timeout  Duration `yaml:"timeout" env:"JOKES_FETCH_TIMEOUT"`
}

type SpeechConfig struct {
	Enabled  bool    `yaml:"enabled" env:"JOKES_SPEECH_ENABLED"`
	Provider string  `yaml:"provider" env:"JOKES_SPEECH_PROVIDER"` // openai, google
	Output   string  `yaml:"output" env:"JOKES_SPEECH_OUTPUT"`     // browser, local
	Language string  `yaml:"language" env:"JOKES_SPEECH_LANGUAGE"` // voice language prefix
	VolumeDB float64 `yaml:"volume_db" env:"JOKES_SPEECH_VOLUME_DB"`
}

type VoiceConfig struct {
	Name string `yaml:"name"`
	Lang string `yaml:"lang"`
}

type OpenAIConfig struct {
	APIKeyEnv      string        `yaml:"api_key_env"`
	BaseURL        string        `yaml:"base_url" env:"OPENAI_BASE_URL"` // default https://api.openai.com/v1
	Model          string        `yaml:"model" env:"OPENAI_TTS_MODEL"`   // tts-1-hd, tts-1, gpt-4o-mini-tts, etc
	Voice          string        `yaml:"voice" env:"OPENAI_TTS_VOICE"`   // default voice when none is picked
	ResponseFormat string        `yaml:"response_format"`                // mp3, wav, aac, opus, flac
	Speed          float64       `yaml:"speed"`
	Timeout        Duration      `yaml:"timeout"`
	MaxTextChars   int           `yaml:"max_text_chars"`
	Voices         []VoiceConfig `yaml:"voices"`
}

type GoogleConfig struct {
	CredentialsPath string  `yaml:"credentials_path" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `yaml:"language" env:"GOOGLE_TTS_LANGUAGE"`
	Voice           string  `yaml:"voice" env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `yaml:"speaking_rate"`
	Pitch           float64 `yaml:"pitch"`
	VolumeGainDb    float64 `yaml:"volume_gain_db"`
}

type CacheConfig struct {
	AudioDir string `yaml:"audio_dir" env:"JOKES_AUDIO_DIR"`
}

const DefaultEndpoint = "https://official-joke-api.appspot.com/random_ten"

func defaultVoices() []VoiceConfig {
	names := []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	out := make([]VoiceConfig, 0, len(names))
	for _, n := range names {
		out = append(out, VoiceConfig{Name: n, Lang: "en-US"})
	}
	return out
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Bind:              "127.0.0.1",
			Port:              8092,
			ReadHeaderTimeout: Duration(5 * time.Second),
		},
		Jokes: JokesConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  Duration(15 * time.Second),
		},
		Speech: SpeechConfig{
			Enabled:  true,
			Provider: "openai",
			Output:   "browser",
			Language: "en",
		},
		OpenAI: OpenAIConfig{
			APIKeyEnv:      "OPENAI_API_KEY",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "tts-1",
			Voice:          "alloy",
			ResponseFormat: "mp3",
			Speed:          1.0,
			Timeout:        Duration(30 * time.Second),
			MaxTextChars:   500,
			Voices:         defaultVoices(),
		},
		Google: GoogleConfig{
			Language:     "en-US",
			SpeakingRate: 1.0,
		},
		Cache: CacheConfig{
			AudioDir: "./cache/audio",
		},
	}
}

// Load reads the YAML file at path (a missing file leaves the defaults),
// applies environment overrides and sanitizes the result.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}

	cfg.sanitize()
	return cfg, nil
}

func (cfg *Config) sanitize() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8092
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "127.0.0.1"
	}
	if cfg.Server.ReadHeaderTimeout.ToDuration() <= 0 {
		cfg.Server.ReadHeaderTimeout = Duration(5 * time.Second)
	}

	if strings.TrimSpace(cfg.Jokes.Endpoint) == "" {
		cfg.Jokes.Endpoint = DefaultEndpoint
	}
	if cfg.Jokes.Timeout.ToDuration() <= 0 {
		cfg.Jokes.Timeout = Duration(15 * time.Second)
	}

	cfg.Speech.Provider = strings.ToLower(strings.TrimSpace(cfg.Speech.Provider))
	if cfg.Speech.Provider != "google" {
		cfg.Speech.Provider = "openai"
	}
	cfg.Speech.Output = strings.ToLower(strings.TrimSpace(cfg.Speech.Output))
	if cfg.Speech.Output != "local" {
		cfg.Speech.Output = "browser"
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = "en"
	}

	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "tts-1"
	}
	if cfg.OpenAI.Voice == "" {
		cfg.OpenAI.Voice = "alloy"
	}
	if cfg.OpenAI.ResponseFormat == "" {
		cfg.OpenAI.ResponseFormat = "mp3"
	}
	if cfg.OpenAI.Speed <= 0 {
		cfg.OpenAI.Speed = 1.0
	}
	if cfg.OpenAI.Timeout.ToDuration() <= 0 {
		cfg.OpenAI.Timeout = Duration(30 * time.Second)
	}
	if cfg.OpenAI.MaxTextChars <= 0 {
		cfg.OpenAI.MaxTextChars = 500
	}
	if len(cfg.OpenAI.Voices) == 0 {
		cfg.OpenAI.Voices = defaultVoices()
	}

	if cfg.Google.Language == "" {
		cfg.Google.Language = "en-US"
	}
	if cfg.Google.SpeakingRate <= 0 {
		cfg.Google.SpeakingRate = 1.0
	}

	if cfg.Cache.AudioDir == "" {
		cfg.Cache.AudioDir = "./cache/audio"
	}
}
