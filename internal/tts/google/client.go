// Package google synthesizes speech and lists voices with Google Cloud
// Text-to-Speech.
package google

import (
	"context"
	"fmt"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/aabelikoff/jokes-creator/internal/voice"
)

type Config struct {
	Language     string
	Voice        string
	SpeakingRate float64
	Pitch        float64
	VolumeGainDb float64
}

// speechAPI is the part of the SDK client this package uses.
type speechAPI interface {
	SynthesizeSpeech(ctx context.Context, req *ttspb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*ttspb.SynthesizeSpeechResponse, error)
	ListVoices(ctx context.Context, req *ttspb.ListVoicesRequest, opts ...gax.CallOption) (*ttspb.ListVoicesResponse, error)
	Close() error
}

type Client struct {
	cfg Config
	api speechAPI
}

// New dials the SDK using Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, cfg Config) (*Client, error) {
	api, err := gctts.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	return newWithAPI(cfg, api), nil
}

func newWithAPI(cfg Config, api speechAPI) *Client {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.SpeakingRate <= 0 {
		cfg.SpeakingRate = 1.0
	}
	return &Client{cfg: cfg, api: api}
}

func (c *Client) Name() string {
	return fmt.Sprintf("google:%s:%s:%.2f:%.2f:%.2f", c.cfg.Language, c.cfg.Voice, c.cfg.SpeakingRate, c.cfg.Pitch, c.cfg.VolumeGainDb)
}

func (c *Client) Format() string { return "mp3" }

func (c *Client) Close() error { return c.api.Close() }

func (c *Client) Synthesize(ctx context.Context, text string, v voice.Voice) ([]byte, error) {
	sel := &ttspb.VoiceSelectionParams{
		LanguageCode: c.cfg.Language,
		Name:         c.cfg.Voice,
	}
	if v.Name != "" {
		sel.Name = v.Name
		if v.Lang != "" {
			sel.LanguageCode = v.Lang
		}
	}

	resp, err := c.api.SynthesizeSpeech(ctx, &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: text}},
		Voice: sel,
		AudioConfig: &ttspb.AudioConfig{
			AudioEncoding: ttspb.AudioEncoding_MP3,
			SpeakingRate:  c.cfg.SpeakingRate,
			Pitch:         c.cfg.Pitch,
			VolumeGainDb:  c.cfg.VolumeGainDb,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	return resp.GetAudioContent(), nil
}

// Voices lists every voice once per language code it supports.
func (c *Client) Voices(ctx context.Context) ([]voice.Voice, error) {
	resp, err := c.api.ListVoices(ctx, &ttspb.ListVoicesRequest{})
	if err != nil {
		return nil, fmt.Errorf("google tts voices: %w", err)
	}
	var out []voice.Voice
	for _, gv := range resp.GetVoices() {
		for _, lang := range gv.GetLanguageCodes() {
			out = append(out, voice.Voice{Name: gv.GetName(), Lang: lang})
		}
	}
	return out, nil
}
