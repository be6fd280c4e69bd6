package launcher

import (
	"context"
	"sync"

	"iwdmenu/menu"
)

// Scripted is the in-memory Selector used in tests. It answers each page
// with the next queued output; an empty output means dismissal. Every page
// shown is recorded for inspection.
type Scripted struct {
	mu      sync.Mutex
	outputs []string
	pages   []*menu.Page
}

var _ Selector = (*Scripted)(nil)

func NewScripted(outputs ...string) *Scripted {
	return &Scripted{outputs: outputs}
}

func (s *Scripted) Select(ctx context.Context, page *menu.Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = append(s.pages, page)

	if len(s.outputs) == 0 {
		return "", ErrDismissed
	}

	output := s.outputs[0]
	s.outputs = s.outputs[1:]

	if output == "" {
		return "", ErrDismissed
	}
	return output, nil
}

// Pages returns every page shown so far, in order.
func (s *Scripted) Pages() []*menu.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages := make([]*menu.Page, len(s.pages))
	copy(pages, s.pages)
	return pages
}
