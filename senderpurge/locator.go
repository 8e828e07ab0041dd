package senderpurge

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/locate"
	"github.com/hazyhaar/domclick/match"
)

// Control names a toolbar control the sequencer clicks.
type Control string

const (
	ControlSelectAll Control = "select_all"
	ControlExpand    Control = "expand_selection"
	ControlDelete    Control = "delete"
	ControlConfirm   Control = "confirm_bulk"
)

// Locator isolates the host-specific markup. Not-found results are nil
// with a nil error.
type Locator interface {
	// FindRow walks up from a right-click target to its message row.
	FindRow(target dom.Element) (dom.Element, error)
	// SenderEmail extracts the sender's address from a row, "" if none.
	SenderEmail(row dom.Element) (string, error)
	// FindMenuItem finds the host's "find emails from" entry under root.
	FindMenuItem(root dom.Element) (*locate.TextMatch, error)
	// ResultsReady reports the number of result rows and whether the
	// results view has finished rendering.
	ResultsReady(doc dom.Document) (int, bool, error)
	// FindActionControl returns the toolbar control, or nil.
	FindActionControl(doc dom.Document, c Control) (dom.Element, error)
}

// SelectorLocator implements Locator with the configured selectors.
type SelectorLocator struct {
	Selectors   Selectors
	MenuMarker  string
	ExpandTexts []string
}

// NewSelectorLocator builds a SelectorLocator from cfg.
func NewSelectorLocator(cfg Config) SelectorLocator {
	return SelectorLocator{
		Selectors:   cfg.Selectors,
		MenuMarker:  cfg.MenuMarker,
		ExpandTexts: cfg.ExpandTexts,
	}
}

func (l SelectorLocator) FindRow(target dom.Element) (dom.Element, error) {
	row := locate.All(
		locate.Tag("tr"),
		locate.AnyOf(
			locate.HasDescendant(l.Selectors.RowSender),
			locate.HasDescendant(l.Selectors.RowHovercard),
		),
	)
	return locate.Ancestor(target, row)
}

func (l SelectorLocator) SenderEmail(row dom.Element) (string, error) {
	if row == nil {
		return "", nil
	}
	el, err := row.Query(l.Selectors.RowSender)
	if err != nil {
		return "", fmt.Errorf("senderpurge: sender element: %w", err)
	}
	if el != nil {
		if v, _, err := el.Attr("email"); err != nil {
			return "", fmt.Errorf("senderpurge: email attribute: %w", err)
		} else if v != "" {
			return v, nil
		}
	}

	el, err = row.Query(l.Selectors.RowHovercard)
	if err != nil {
		return "", fmt.Errorf("senderpurge: hovercard element: %w", err)
	}
	if el == nil {
		return "", nil
	}
	id, _, err := el.Attr("data-hovercard-id")
	if err != nil {
		return "", fmt.Errorf("senderpurge: hovercard attribute: %w", err)
	}
	if strings.Contains(id, "@") {
		return id, nil
	}
	return "", nil
}

func (l SelectorLocator) FindMenuItem(root dom.Element) (*locate.TextMatch, error) {
	item := locate.AnyOf(locate.AttrEquals("role", "menuitem"), locate.HasAttr("act"))
	return locate.TextMarker(root, l.MenuMarker, item)
}

func (l SelectorLocator) ResultsReady(doc dom.Document) (int, bool, error) {
	rows, err := doc.QueryAll(l.Selectors.ResultRows)
	if err != nil {
		return 0, false, fmt.Errorf("senderpurge: result rows: %w", err)
	}
	toolbar, err := doc.Query(l.Selectors.Toolbar)
	if err != nil {
		return 0, false, fmt.Errorf("senderpurge: toolbar: %w", err)
	}
	return len(rows), len(rows) > 0 && toolbar != nil, nil
}

func (l SelectorLocator) FindActionControl(doc dom.Document, c Control) (dom.Element, error) {
	switch c {
	case ControlSelectAll:
		return doc.Query(l.Selectors.SelectAll)
	case ControlExpand:
		return l.expandLink(doc)
	case ControlDelete:
		return doc.Query(l.Selectors.Delete)
	case ControlConfirm:
		return doc.Query(l.Selectors.ConfirmOK)
	}
	return nil, fmt.Errorf("senderpurge: unknown control %q", c)
}

// expandLink returns the first banner link offering to select every
// matching conversation.
func (l SelectorLocator) expandLink(doc dom.Document) (dom.Element, error) {
	links, err := doc.QueryAll(l.Selectors.ExpandLinks)
	if err != nil {
		return nil, fmt.Errorf("senderpurge: expand links: %w", err)
	}
	for _, link := range links {
		text, err := link.Text()
		if err != nil {
			return nil, fmt.Errorf("senderpurge: link text: %w", err)
		}
		if match.Any(text, l.ExpandTexts) {
			return link, nil
		}
	}
	return nil, nil
}
