// Package dom holds the page document served to the browser and serializes
// every mutation of its joke container.
package dom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Container is one element of a parsed document. All access goes through
// Update or View, which run under the container lock.
type Container struct {
	mu   sync.Mutex
	doc  *goquery.Document
	elem *goquery.Selection
}

// NewContainer parses page and binds the first element matching selector.
func NewContainer(page, selector string) (*Container, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	elem := doc.Find(selector).First()
	if elem.Length() == 0 {
		return nil, fmt.Errorf("container %q not found", selector)
	}
	return &Container{doc: doc, elem: elem}, nil
}

// Update runs fn with exclusive access to the container element.
func (c *Container) Update(fn func(el *goquery.Selection) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.elem)
}

// View runs fn with the container element; fn must not mutate it.
func (c *Container) View(fn func(el *goquery.Selection)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.elem)
}

// InnerHTML returns the markup inside the container.
func (c *Container) InnerHTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, _ := c.elem.Html()
	return h
}

// Document returns the whole page markup.
func (c *Container) Document() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, _ := c.doc.Html()
	return h
}
