// Package banner shows a dismissible error notice in the page container.
package banner

import (
	"errors"
	"html"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/dom"
	"github.com/aabelikoff/jokes-creator/internal/joke"
)

const selector = "li.error-container"

type Banner struct {
	container *dom.Container
	log       zerolog.Logger
}

func New(container *dom.Container, log zerolog.Logger) *Banner {
	return &Banner{container: container, log: log}
}

// Show appends a notice for err. It does not remove an earlier one.
func (b *Banner) Show(err error) {
	msg := err.Error()
	var httpErr *joke.HttpError
	if errors.As(err, &httpErr) {
		msg = httpErr.Message
		b.log.Error().Err(err).Int("status", httpErr.StatusCode).Str("url", httpErr.URL).Msg("HttpError")
	} else {
		b.log.Error().Err(err).Msg("fetch failed")
	}

	notice := `<li class="error-container"><p>Something went wrong</p><p>` + html.EscapeString(msg) +
		`</p><p>Try once more or refer to developer.</p></li>`
	_ = b.container.Update(func(el *goquery.Selection) error {
		el.AppendHtml(notice)
		return nil
	})
}

// Hide removes the first notice, if any.
func (b *Banner) Hide() { b.remove() }

// Dismiss is the click-to-dismiss action.
func (b *Banner) Dismiss() bool {
	removed := b.remove()
	if removed {
		b.log.Debug().Msg("error notice dismissed")
	}
	return removed
}

func (b *Banner) Visible() bool {
	var n int
	b.container.View(func(el *goquery.Selection) {
		n = el.Find(selector).Length()
	})
	return n > 0
}

func (b *Banner) remove() bool {
	var removed bool
	_ = b.container.Update(func(el *goquery.Selection) error {
		notice := el.Find(selector).First()
		if notice.Length() > 0 {
			notice.Remove()
			removed = true
		}
		return nil
	})
	return removed
}
