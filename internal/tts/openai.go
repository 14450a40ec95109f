package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aabelikoff/jokes-creator/internal/voice"
)

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	ResponseFormat string // mp3, wav, etc
	Speed          float64
	Timeout        time.Duration
}

// OpenAI synthesizes speech with the /audio/speech endpoint.
type OpenAI struct {
	cfg  OpenAIConfig
	http *http.Client
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = "mp3"
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAI{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (o *OpenAI) Name() string {
	// the default voice is part of the cache key for unpicked utterances
	return fmt.Sprintf("openai:%s:%s:%s:%.3f", o.cfg.Model, o.cfg.Voice, o.cfg.ResponseFormat, o.cfg.Speed)
}

func (o *OpenAI) Format() string { return o.cfg.ResponseFormat }

func (o *OpenAI) Synthesize(ctx context.Context, text string, v voice.Voice) ([]byte, error) {
	endpoint := o.cfg.BaseURL + "/audio/speech"

	name := v.Name
	if name == "" {
		name = o.cfg.Voice
	}
	payload := map[string]any{
		"model":           o.cfg.Model,
		"voice":           name,
		"input":           text,
		"response_format": o.cfg.ResponseFormat,
		"speed":           o.cfg.Speed,
	}

	b, code, errMsg, err := o.postAudio(ctx, endpoint, payload)
	if err == nil {
		return b, nil
	}

	// Fallback: if API complains about response_format, try format instead
	if code == http.StatusBadRequest && strings.Contains(strings.ToLower(errMsg), "response_format") {
		delete(payload, "response_format")
		payload["format"] = o.cfg.ResponseFormat
		b2, _, _, err2 := o.postAudio(ctx, endpoint, payload)
		if err2 == nil {
			return b2, nil
		}
	}

	return nil, err
}

func (o *OpenAI) postAudio(ctx context.Context, url string, payload map[string]any) ([]byte, int, string, error) {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(data) == 0 {
			return nil, resp.StatusCode, "", errors.New("empty audio response")
		}
		return data, resp.StatusCode, "", nil
	}

	// parse OpenAI-style error json if present
	errMsg := strings.TrimSpace(string(data))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		errMsg = parsed.Error.Message
	}

	return nil, resp.StatusCode, errMsg, fmt.Errorf("openai tts failed: status=%d msg=%s", resp.StatusCode, errMsg)
}
