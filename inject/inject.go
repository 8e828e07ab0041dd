// Package inject adds agent-owned controls to the host page by cloning a
// host element, so the copy inherits the host's styling.
package inject

import (
	"fmt"

	"github.com/hazyhaar/domclick/dom"
)

// Options describes the clone to insert.
type Options struct {
	// Marker is the attribute that tags injected elements. A sibling
	// carrying it turns CloneAfter into a no-op.
	Marker string
	// Match selects the text node to rewrite; Label replaces it.
	Match string
	Label string
	// Style is applied to the clone, property to value.
	Style map[string]string
	// IconStyle maps an icon selector (img, svg) to the style applied to
	// the first match inside the clone.
	IconStyle map[string]map[string]string
	// OnClick runs instead of the template's own click behaviour.
	OnClick func()
}

// CloneAfter clones template and inserts the copy right after it. It
// returns nil, false when an injected sibling already exists or the
// template is detached. Calling it repeatedly for one render is safe.
func CloneAfter(template dom.Element, opts Options) (dom.Element, bool, error) {
	if opts.Marker == "" {
		return nil, false, fmt.Errorf("inject: empty marker")
	}
	parent, err := template.Parent()
	if err != nil {
		return nil, false, fmt.Errorf("inject: parent: %w", err)
	}
	if parent == nil {
		return nil, false, nil
	}
	existing, err := parent.Query("[" + opts.Marker + "]")
	if err != nil {
		return nil, false, fmt.Errorf("inject: marker check: %w", err)
	}
	if existing != nil {
		return nil, false, nil
	}

	clone, err := template.Clone()
	if err != nil {
		return nil, false, fmt.Errorf("inject: clone: %w", err)
	}
	if err := clone.SetAttr(opts.Marker, "true"); err != nil {
		return nil, false, fmt.Errorf("inject: mark: %w", err)
	}
	if opts.Match != "" {
		if _, err := clone.ReplaceText(opts.Match, opts.Label); err != nil {
			return nil, false, fmt.Errorf("inject: label: %w", err)
		}
	}
	for prop, val := range opts.Style {
		if err := clone.SetStyle(prop, val); err != nil {
			return nil, false, fmt.Errorf("inject: style: %w", err)
		}
	}
	if len(opts.IconStyle) > 0 {
		if err := styleIcons(clone, opts.IconStyle); err != nil {
			return nil, false, err
		}
	}
	if opts.OnClick != nil {
		if err := clone.OnClick(opts.OnClick); err != nil {
			return nil, false, fmt.Errorf("inject: listener: %w", err)
		}
	}
	if err := clone.InsertAfter(template); err != nil {
		return nil, false, fmt.Errorf("inject: insert: %w", err)
	}
	return clone, true, nil
}

func styleIcons(clone dom.Element, styles map[string]map[string]string) error {
	for sel, style := range styles {
		icon, err := clone.Query(sel)
		if err != nil {
			return fmt.Errorf("inject: icon %s: %w", sel, err)
		}
		if icon == nil {
			continue
		}
		for prop, val := range style {
			if err := icon.SetStyle(prop, val); err != nil {
				return fmt.Errorf("inject: icon style: %w", err)
			}
		}
	}
	return nil
}
