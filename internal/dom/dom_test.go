package dom

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestNewContainerMissingSelector(t *testing.T) {
	if _, err := NewContainer(`<html><body><div></div></body></html>`, "ul.jokes"); err == nil {
		t.Error("Expected error for missing container")
	}
}

func TestUpdateAndDocument(t *testing.T) {
	c, err := NewContainer(`<!doctype html><html><body><h1>x</h1><ul class="jokes"></ul></body></html>`, "ul.jokes")
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	if err := c.Update(func(el *goquery.Selection) error {
		el.AppendHtml("<li>one</li>")
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := c.InnerHTML(); got != "<li>one</li>" {
		t.Errorf("Expected <li>one</li>, got %q", got)
	}

	page := c.Document()
	if !strings.Contains(page, `<ul class="jokes"><li>one</li></ul>`) || !strings.Contains(page, "<h1>x</h1>") {
		t.Errorf("Expected document to include the mutated container, got %s", page)
	}

	var n int
	c.View(func(el *goquery.Selection) { n = el.Children().Length() })
	if n != 1 {
		t.Errorf("Expected 1 child, got %d", n)
	}
}

func TestUpdatePropagatesError(t *testing.T) {
	c, _ := NewContainer(`<ul class="jokes"></ul>`, "ul.jokes")
	want := errors.New("nope")
	if err := c.Update(func(*goquery.Selection) error { return want }); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
}
