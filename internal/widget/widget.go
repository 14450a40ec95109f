// Package widget renders the current joke batch into the page container and
// reads jokes aloud.
package widget

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/aabelikoff/jokes-creator/internal/dom"
	"github.com/aabelikoff/jokes-creator/internal/joke"
	"github.com/aabelikoff/jokes-creator/internal/speech"
	"github.com/aabelikoff/jokes-creator/internal/voice"
)

// SummaryRunes is how much of the setup an entry shows before the ellipsis.
const SummaryRunes = 40

var ErrJokeNotFound = errors.New("joke not found")

// VoicePicker hands out a random loaded voice, if any.
type VoicePicker interface {
	Random() (voice.Voice, bool)
}

// Speaker is the speech capability: cancel everything, enqueue one utterance.
type Speaker interface {
	Cancel()
	Speak(u speech.Utterance)
}

type Widget struct {
	container *dom.Container
	voices    VoicePicker
	speaker   Speaker
	log       zerolog.Logger

	mu    sync.RWMutex
	jokes []joke.Joke

	// speakMu keeps one cancel-and-enqueue sequence whole
	speakMu sync.Mutex
}

// New binds a widget to container. speaker may be nil when speech is
// unavailable; Listen then only logs.
func New(container *dom.Container, voices VoicePicker, speaker Speaker, log zerolog.Logger) *Widget {
	return &Widget{
		container: container,
		voices:    voices,
		speaker:   speaker,
		log:       log,
	}
}

// SetBatch replaces the held jokes wholesale.
func (w *Widget) SetBatch(jokes []joke.Joke) {
	w.mu.Lock()
	w.jokes = append([]joke.Joke(nil), jokes...)
	w.mu.Unlock()
}

// Jokes returns a copy of the current batch.
func (w *Widget) Jokes() []joke.Joke {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]joke.Joke(nil), w.jokes...)
}

// Clear wipes the container.
func (w *Widget) Clear() {
	_ = w.container.Update(func(el *goquery.Selection) error {
		el.Empty()
		return nil
	})
}

// Render appends one entry per joke in batch order.
func (w *Widget) Render() {
	jokes := w.Jokes()
	if len(jokes) == 0 {
		return
	}

	var b strings.Builder
	for _, j := range jokes {
		b.WriteString(entryHTML(j))
	}
	_ = w.container.Update(func(el *goquery.Selection) error {
		el.AppendHtml(b.String())
		return nil
	})
}

// HoverEnter shows the full joke inside its entry.
func (w *Widget) HoverEnter(id int) error {
	j, err := w.lookup(id)
	if err != nil {
		return err
	}
	return w.container.Update(func(el *goquery.Selection) error {
		q, err := question(el, id)
		if err != nil {
			return err
		}
		if q.Find(".joke-block").Length() > 0 {
			return nil
		}
		q.AppendHtml(fullHTML(j))
		return nil
	})
}

// HoverLeave removes the full joke from its entry.
func (w *Widget) HoverLeave(id int) error {
	return w.container.Update(func(el *goquery.Selection) error {
		q, err := question(el, id)
		if err != nil {
			return err
		}
		q.Find(".joke-block").Remove()
		return nil
	})
}

// Listen speaks the setup and the punchline of a joke.
func (w *Widget) Listen(id int) error {
	j, err := w.lookup(id)
	if err != nil {
		return err
	}
	w.speak(j.Setup, j.Punchline)
	return nil
}

func (w *Widget) speak(phrases ...string) {
	if w.speaker == nil {
		w.log.Info().Msg("speech is not supported")
		return
	}

	// at most one active utterance stream
	w.speakMu.Lock()
	defer w.speakMu.Unlock()
	w.speaker.Cancel()
	for _, p := range phrases {
		var v *voice.Voice
		if w.voices != nil {
			if picked, ok := w.voices.Random(); ok {
				v = &picked
			}
		}
		w.speaker.Speak(speech.NewUtterance(p, v))
	}
}

func (w *Widget) lookup(id int) (joke.Joke, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	j, ok := joke.Find(w.jokes, id)
	if !ok {
		return joke.Joke{}, fmt.Errorf("%w: id %d", ErrJokeNotFound, id)
	}
	return j, nil
}

// Truncate keeps the first SummaryRunes runes and always appends "...".
func Truncate(s string) string {
	r := []rune(s)
	if len(r) > SummaryRunes {
		r = r[:SummaryRunes]
	}
	return string(r) + "..."
}

func entryHTML(j joke.Joke) string {
	return `<li><span class="question">` + html.EscapeString(Truncate(j.Setup)) + `</span>` +
		`<button class="btn listen" data-joke-id="` + strconv.Itoa(j.ID) + `">Listen Whole Joke</button></li>`
}

func fullHTML(j joke.Joke) string {
	return `<div class="joke-block"><p>` + html.EscapeString(j.Setup) + `</p><p>` +
		html.EscapeString(j.Punchline) + `</p></div>`
}

// question finds the summary span of the entry carrying id.
func question(el *goquery.Selection, id int) (*goquery.Selection, error) {
	btn := el.Find(`button[data-joke-id="` + strconv.Itoa(id) + `"]`).First()
	q := btn.Closest("li").Find("span.question").First()
	if q.Length() == 0 {
		return nil, fmt.Errorf("%w: no entry for id %d", ErrJokeNotFound, id)
	}
	return q, nil
}
