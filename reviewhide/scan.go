// Package reviewhide marks test files as viewed on a pull request's
// files page, so review starts with the production changes.
package reviewhide

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/match"
)

// Locator isolates the host-specific markup.
type Locator interface {
	// FindHeaders returns every file header on the page.
	FindHeaders(doc dom.Document) ([]dom.Element, error)
	// FindActionControl returns the viewed toggle belonging to header,
	// or nil when the header has none.
	FindActionControl(header dom.Element) (dom.Element, error)
}

// SelectorLocator finds headers by selector and the toggle inside the
// element following the header's parent.
type SelectorLocator struct {
	HeaderSelector string
	ButtonSelector string
	Logger         *slog.Logger
}

func (l SelectorLocator) FindHeaders(doc dom.Document) ([]dom.Element, error) {
	return doc.QueryAll(l.HeaderSelector)
}

func (l SelectorLocator) FindActionControl(header dom.Element) (dom.Element, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parent, err := header.Parent()
	if err != nil {
		return nil, fmt.Errorf("reviewhide: header parent: %w", err)
	}
	if parent == nil {
		logger.Debug("reviewhide: no parent element for header")
		return nil, nil
	}
	body, err := parent.NextSibling()
	if err != nil {
		return nil, fmt.Errorf("reviewhide: parent sibling: %w", err)
	}
	if body == nil {
		logger.Debug("reviewhide: no element sibling after header parent")
		return nil, nil
	}
	return body.Query(l.ButtonSelector)
}

// Scanner runs the bulk scan.
type Scanner struct {
	Doc      dom.Document
	Locator  Locator
	Patterns []string
	Logger   *slog.Logger
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Scan marks every matching header as viewed and returns how many
// toggles were clicked. A failure to list headers returns 0.
func (s *Scanner) Scan(ctx context.Context) int {
	headers, err := s.Locator.FindHeaders(s.Doc)
	if err != nil {
		s.logger().ErrorContext(ctx, "reviewhide: list headers failed", "error", err)
		return 0
	}
	s.logger().DebugContext(ctx, "reviewhide: found header elements", "count", len(headers))

	processed := 0
	for _, h := range headers {
		if ctx.Err() != nil {
			break
		}
		text, err := h.Text()
		if err != nil {
			s.logger().WarnContext(ctx, "reviewhide: header text failed", "error", err)
			continue
		}
		if !match.Any(text, s.Patterns) {
			continue
		}
		if s.MarkViewed(ctx, h) {
			processed++
		}
	}

	s.logger().InfoContext(ctx, "reviewhide: scan done", "processed", processed)
	return processed
}

// MarkViewed clicks the viewed toggle of header. It reports false when
// the toggle cannot be found or clicked.
func (s *Scanner) MarkViewed(ctx context.Context, header dom.Element) bool {
	text, _ := header.Text()
	text = strings.TrimSpace(text)

	btn, err := s.Locator.FindActionControl(header)
	if err != nil {
		s.logger().ErrorContext(ctx, "reviewhide: locate toggle failed", "file", text, "error", err)
		return false
	}
	if btn == nil {
		s.logger().DebugContext(ctx, "reviewhide: no not-viewed toggle", "file", text)
		return false
	}
	if err := btn.Click(); err != nil {
		s.logger().ErrorContext(ctx, "reviewhide: click failed", "file", text, "error", err)
		return false
	}
	s.logger().DebugContext(ctx, "reviewhide: marked as viewed", "file", text)
	return true
}
