package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type countingProvider struct {
	calls  int
	voices []Voice
	err    error
}

func (p *countingProvider) Voices(context.Context) ([]Voice, error) {
	p.calls++
	return p.voices, p.err
}

func TestRegistryFiltersByPrefix(t *testing.T) {
	p := &countingProvider{voices: []Voice{
		{Name: "a", Lang: "en-US"},
		{Name: "b", Lang: "fr-FR"},
		{Name: "c", Lang: "EN-gb"},
		{Name: "d", Lang: "de-DE"},
	}}
	r := NewRegistry(p, "en", zerolog.Nop())

	if r.Loaded() {
		t.Fatal("Expected registry to start unloaded")
	}
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !r.Loaded() {
		t.Fatal("Expected registry to be loaded")
	}

	got := r.Voices()
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("Expected voices [a c], got %+v", got)
	}

	select {
	case <-r.Ready():
	default:
		t.Error("Expected Ready channel to be closed")
	}
}

func TestRegistryLoadsOnce(t *testing.T) {
	p := &countingProvider{voices: []Voice{{Name: "a", Lang: "en"}}}
	r := NewRegistry(p, "en", zerolog.Nop())

	for i := 0; i < 3; i++ {
		_ = r.Load(context.Background())
	}
	if p.calls != 1 {
		t.Errorf("Expected provider to be called once, got %d", p.calls)
	}
}

func TestRegistryFailureStaysUnloaded(t *testing.T) {
	p := &countingProvider{err: errors.New("no platform")}
	r := NewRegistry(p, "en", zerolog.Nop())

	if err := r.Load(context.Background()); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if r.Loaded() {
		t.Error("Expected registry to stay unloaded after failure")
	}
	if _, ok := r.Random(); ok {
		t.Error("Expected Random to report false when unloaded")
	}
	if err := r.Load(context.Background()); err == nil {
		t.Error("Expected second Load to return the first error")
	}
	if p.calls != 1 {
		t.Errorf("Expected no reload after failure, got %d calls", p.calls)
	}

	select {
	case <-r.Ready():
		t.Error("Ready must not be closed after a failed load")
	default:
	}
}

func TestRegistryNilProvider(t *testing.T) {
	r := NewRegistry(nil, "en", zerolog.Nop())
	if err := r.Load(context.Background()); err == nil {
		t.Error("Expected error for nil provider")
	}
}

func TestRegistryRandom(t *testing.T) {
	r := NewRegistry(Static{{Name: "a", Lang: "en"}, {Name: "b", Lang: "en"}, {Name: "c", Lang: "en"}}, "en", zerolog.Nop())
	if _, ok := r.Random(); ok {
		t.Fatal("Expected Random to report false before Load")
	}
	_ = r.Load(context.Background())

	r.intn = func(n int) int { return n - 1 }
	v, ok := r.Random()
	if !ok || v.Name != "c" {
		t.Errorf("Random() = %+v, %v; want c", v, ok)
	}

	r.intn = func(int) int { return 0 }
	v, _ = r.Random()
	if v.Name != "a" {
		t.Errorf("Random() = %+v; want a", v)
	}
}

func TestRegistryLoadedEmpty(t *testing.T) {
	r := NewRegistry(Static{{Name: "x", Lang: "ja-JP"}}, "en", zerolog.Nop())
	_ = r.Load(context.Background())

	if !r.Loaded() {
		t.Error("Expected loaded even when no voice matches")
	}
	if _, ok := r.Random(); ok {
		t.Error("Expected Random to report false with zero matching voices")
	}
}
