package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/voice"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeBackend) Name() string   { return "fake" }
func (f *fakeBackend) Format() string { return "wav" }

func (f *fakeBackend) Synthesize(_ context.Context, text string, v voice.Voice) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, v.Name+":"+text)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("RIFF" + text), nil
}

func newTestClient(t *testing.T, b Backend, maxChars int) *Client {
	t.Helper()
	c, err := NewClient(Config{CacheDir: t.TempDir(), MaxTextChars: maxChars}, b, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresBackend(t *testing.T) {
	if _, err := NewClient(Config{CacheDir: t.TempDir()}, nil, zerolog.Nop()); err == nil {
		t.Error("Expected error for nil backend")
	}
}

func TestSpeakToFileCaches(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, 0)

	first, err := c.SpeakToFile(context.Background(), "  hello  ", voice.Voice{Name: "nova"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.CacheHit {
		t.Error("Expected first call to miss the cache")
	}
	if filepath.Ext(first.Path) != ".wav" {
		t.Errorf("Expected .wav file, got %s", first.Path)
	}
	data, err := os.ReadFile(first.Path)
	if err != nil || string(data) != "RIFFhello" {
		t.Errorf("Unexpected audio file contents %q (%v)", data, err)
	}

	second, err := c.SpeakToFile(context.Background(), "hello", voice.Voice{Name: "nova"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.CacheHit || second.Path != first.Path {
		t.Errorf("Expected cache hit on %s, got %+v", first.Path, second)
	}
	if len(b.calls) != 1 {
		t.Errorf("Expected one backend call, got %d", len(b.calls))
	}
}

func TestSpeakToFileVoiceChangesKey(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, 0)

	a, _ := c.SpeakToFile(context.Background(), "hello", voice.Voice{Name: "nova"})
	d, _ := c.SpeakToFile(context.Background(), "hello", voice.Voice{})
	if a.Path == d.Path {
		t.Error("Expected different files for different voices")
	}
}

func TestSpeakToFileRejectsEmpty(t *testing.T) {
	c := newTestClient(t, &fakeBackend{}, 0)
	if _, err := c.SpeakToFile(context.Background(), "   ", voice.Voice{}); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestSpeakToFileTruncates(t *testing.T) {
	b := &fakeBackend{}
	c := newTestClient(t, b, 3)

	if _, err := c.SpeakToFile(context.Background(), "日本語テスト", voice.Voice{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(b.calls) != 1 || b.calls[0] != ":日本語" {
		t.Errorf("Expected truncated text, got %v", b.calls)
	}
}

func TestSpeakToFileBackendError(t *testing.T) {
	c := newTestClient(t, &fakeBackend{err: errors.New("quota")}, 0)
	if _, err := c.SpeakToFile(context.Background(), "hi", voice.Voice{}); err == nil {
		t.Error("Expected backend error to propagate")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("Expected /audio/speech, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: srv.URL + "/", Voice: "alloy"})
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	audio, err := o.Synthesize(context.Background(), "hello", voice.Voice{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Errorf("Unexpected audio %q", audio)
	}
	if got["voice"] != "alloy" || got["input"] != "hello" || got["response_format"] != "mp3" {
		t.Errorf("Unexpected payload %v", got)
	}

	_, _ = o.Synthesize(context.Background(), "hello", voice.Voice{Name: "onyx"})
	if got["voice"] != "onyx" {
		t.Errorf("Expected picked voice onyx, got %v", got["voice"])
	}
}

func TestOpenAIFormatFallback(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		var p map[string]any
		_ = json.NewDecoder(r.Body).Decode(&p)
		if _, ok := p["response_format"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"unknown parameter response_format"}}`))
			return
		}
		if p["format"] != "mp3" {
			t.Errorf("Expected format fallback, got %v", p)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	o, _ := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})
	if _, err := o.Synthesize(context.Background(), "hi", voice.Voice{}); err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestOpenAIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	o, _ := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})
	_, err := o.Synthesize(context.Background(), "hi", voice.Voice{})
	if err == nil || !strings.Contains(err.Error(), "bad key") || !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected parsed error message, got %v", err)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{APIKey: "  "}); err == nil {
		t.Error("Expected error for missing key")
	}
}

func TestSpeakToFileDefaultVoiceChangesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte("ID3" + payload["voice"].(string)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	speak := func(defaultVoice string) SpeakResult {
		t.Helper()
		o, err := NewOpenAI(OpenAIConfig{APIKey: "key", BaseURL: srv.URL, Voice: defaultVoice})
		if err != nil {
			t.Fatalf("NewOpenAI: %v", err)
		}
		c, err := NewClient(Config{CacheDir: dir}, o, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		res, err := c.SpeakToFile(context.Background(), "hello", voice.Voice{})
		if err != nil {
			t.Fatalf("SpeakToFile: %v", err)
		}
		return res
	}

	alloy := speak("alloy")
	onyx := speak("onyx")
	if onyx.CacheHit || onyx.Path == alloy.Path {
		t.Fatalf("Expected a new file for a different default voice, got %+v", onyx)
	}
	b, err := os.ReadFile(onyx.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "ID3onyx" {
		t.Errorf("Expected onyx audio, got %q", b)
	}
	if again := speak("alloy"); !again.CacheHit || again.Path != alloy.Path {
		t.Errorf("Expected the alloy file to be reused, got %+v", again)
	}
}
