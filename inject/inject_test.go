package inject

import (
	"strings"
	"testing"

	"github.com/hazyhaar/domclick/dom/memdom"
)

const menu = `<html><body><div id="menu">
<div role="menuitem" id="find"><img src="i.png"><span>Find emails from Ann</span></div>
<div role="menuitem" id="other"><span>Mute</span></div>
</div></body></html>`

func TestCloneAfterIdempotent(t *testing.T) {
	doc, err := memdom.ParseString(menu)
	if err != nil {
		t.Fatal(err)
	}
	find, _ := doc.Query("#find")

	clicked := 0
	opts := Options{
		Marker:    "data-test-injected",
		Match:     "Find emails from",
		Label:     "Delete all from Ann",
		Style:     map[string]string{"color": "#d93025"},
		IconStyle: map[string]map[string]string{"img": {"filter": "grayscale(1)"}},
		OnClick:   func() { clicked++ },
	}

	clone, ok, err := CloneAfter(find, opts)
	if err != nil || !ok || clone == nil {
		t.Fatalf("first CloneAfter: %v %v %v", clone, ok, err)
	}
	again, ok, err := CloneAfter(find, opts)
	if err != nil || ok || again != nil {
		t.Fatalf("second CloneAfter: got %v %v %v, want no-op", again, ok, err)
	}

	injected, _ := doc.QueryAll("[data-test-injected]")
	if len(injected) != 1 {
		t.Fatalf("injected: got %d, want 1", len(injected))
	}

	next, _ := find.NextSibling()
	if same, _ := next.Same(clone); !same {
		t.Error("clone not inserted after template")
	}
	text, _ := clone.Text()
	if strings.TrimSpace(text) != "Delete all from Ann" {
		t.Errorf("label: got %q", text)
	}
	style, _, _ := clone.Attr("style")
	if style != "color: #d93025" {
		t.Errorf("style: got %q", style)
	}
	img, _ := clone.Query("img")
	if s, _, _ := img.Attr("style"); s != "filter: grayscale(1)" {
		t.Errorf("icon style: got %q", s)
	}

	// Template text is untouched.
	if text, _ := find.Text(); !strings.Contains(text, "Find emails from Ann") {
		t.Errorf("template text changed: %q", text)
	}

	label, _ := clone.Query("span")
	label.Click()
	if clicked != 1 {
		t.Errorf("clicked: got %d, want 1", clicked)
	}
}

func TestCloneAfterDetached(t *testing.T) {
	doc, _ := memdom.ParseString(menu)
	find, _ := doc.Query("#find")
	detached, _ := find.Clone()

	got, ok, err := CloneAfter(detached, Options{Marker: "data-x"})
	if got != nil || ok || err != nil {
		t.Errorf("got %v %v %v, want nil false nil", got, ok, err)
	}
}

func TestCloneAfterEmptyMarker(t *testing.T) {
	doc, _ := memdom.ParseString(menu)
	find, _ := doc.Query("#find")
	if _, _, err := CloneAfter(find, Options{}); err == nil {
		t.Error("expected error for empty marker")
	}
}
