// Package app wires the find-jokes action: fetch, then render or report.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aabelikoff/jokes-creator/internal/joke"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]joke.Joke, error)
}

type JokeList interface {
	SetBatch(jokes []joke.Joke)
	Clear()
	Render()
}

type ErrorBanner interface {
	Show(err error)
	Hide()
}

type Result struct {
	Rendered bool
	Count    int
	// Shared is set for callers that joined another caller's fetch.
	Shared bool
}

type App struct {
	fetcher Fetcher
	list    JokeList
	banner  ErrorBanner
	timeout time.Duration
	log     zerolog.Logger

	sf singleflight.Group
}

func New(f Fetcher, list JokeList, banner ErrorBanner, timeout time.Duration, log zerolog.Logger) *App {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &App{
		fetcher: f,
		list:    list,
		banner:  banner,
		timeout: timeout,
		log:     log,
	}
}

// FindJokes hides any notice, fetches a batch and renders it. An empty batch
// leaves the current list untouched. Calls that overlap an in-flight fetch
// share its outcome.
func (a *App) FindJokes(ctx context.Context) (Result, error) {
	// singleflight reports shared to the owner as well; fn runs only for it
	owner := false
	v, err, _ := a.sf.Do("find", func() (any, error) {
		owner = true
		return a.find(ctx)
	})
	shared := !owner
	if err != nil {
		return Result{Shared: shared}, err
	}
	res := v.(Result)
	res.Shared = shared
	return res, nil
}

func (a *App) find(ctx context.Context) (Result, error) {
	a.banner.Hide()

	// the fetch outlives a single impatient caller
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	jokes, err := a.fetcher.Fetch(fctx)
	if err != nil {
		a.banner.Show(err)
		return Result{}, err
	}
	if len(jokes) == 0 {
		a.log.Info().Msg("joke source returned nothing; keeping current list")
		return Result{}, nil
	}

	a.list.SetBatch(jokes)
	a.list.Clear()
	a.list.Render()

	a.log.Info().Int("jokes", len(jokes)).Msg("jokes rendered")
	return Result{Rendered: true, Count: len(jokes)}, nil
}
