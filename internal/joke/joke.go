// Package joke fetches batches of jokes from the remote joke API.
package joke

import (
	"errors"
	"fmt"
)

type Joke struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Setup     string `json:"setup"`
	Punchline string `json:"punchline"`
}

// ErrMalformedResponse is returned when the body is not a JSON array of records.
var ErrMalformedResponse = errors.New("malformed joke response")

// HttpError reports a response with a non-2xx status.
type HttpError struct {
	Message    string
	StatusCode int
	Status     string
	URL        string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Status)
}

// Find returns the joke with the given id.
func Find(jokes []Joke, id int) (Joke, bool) {
	for _, j := range jokes {
		if j.ID == id {
			return j, true
		}
	}
	return Joke{}, false
}
