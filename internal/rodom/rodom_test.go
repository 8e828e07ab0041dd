package rodom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domclick/dom"
)

const testPage = `<!doctype html><html><body>
<div id="files">
  <div class="file"><h3 id="h">a.test.ts</h3></div>
  <div class="body"><button aria-label="Not Viewed" id="btn">Viewed</button></div>
</div>
<div role="menu" id="menu"><div role="menuitem" id="find"><span>Find emails from Ann</span></div></div>
</body></html>`

// openPage starts a headless Chrome on a test page. It skips when no
// browser is installed.
func openPage(t *testing.T) (*Document, *rod.Page) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no chrome found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage)
	}))
	t.Cleanup(srv.Close)

	l := launcher.New().Bin(bin).Headless(true)
	u, err := l.Launch()
	if err != nil {
		t.Skipf("launch chrome: %v", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		b.Close()
		l.Cleanup()
	})

	p, err := b.Page(proto.TargetCreateTarget{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WaitLoad(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	doc, err := New(ctx, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	return doc, p
}

func TestNavigation(t *testing.T) {
	doc, _ := openPage(t)

	h, err := doc.Query("#h")
	if err != nil || h == nil {
		t.Fatalf("query: %v %v", h, err)
	}
	if tag, _ := h.Tag(); tag != "h3" {
		t.Errorf("tag: got %q", tag)
	}
	parent, _ := h.Parent()
	body, _ := parent.NextSibling()
	if body == nil {
		t.Fatal("no element sibling")
	}
	btn, _ := body.Query(`button[aria-label="Not Viewed"]`)
	if btn == nil {
		t.Fatal("button not found")
	}
	if v, ok, _ := btn.Attr("aria-label"); !ok || v != "Not Viewed" {
		t.Errorf("attr: got %q %v", v, ok)
	}
	if _, ok, _ := btn.Attr("data-missing"); ok {
		t.Error("missing attribute reported present")
	}
	byID, _ := doc.Query("#btn")
	if same, _ := btn.Same(byID); !same {
		t.Error("same node not recognised")
	}
	if missing, err := doc.Query("#nope"); err != nil || missing != nil {
		t.Errorf("missing: got %v %v", missing, err)
	}

	menu, _ := doc.Query("#menu")
	nodes, err := menu.TextNodes()
	if err != nil || len(nodes) != 1 || nodes[0].Text != "Find emails from Ann" {
		t.Fatalf("text nodes: %+v %v", nodes, err)
	}
	if tag, _ := nodes[0].Parent.Tag(); tag != "span" {
		t.Errorf("text parent: got %q", tag)
	}
}

func TestInjectObserveClick(t *testing.T) {
	doc, _ := openPage(t)

	added := make(chan []dom.Element, 4)
	menu, _ := doc.Query("#menu")
	if err := doc.Observe(menu, func(els []dom.Element) { added <- els }); err != nil {
		t.Fatal(err)
	}

	find, _ := doc.Query("#find")
	clone, err := find.Clone()
	if err != nil {
		t.Fatal(err)
	}
	clone.SetAttr("data-injected", "true")
	clone.SetAttr("id", "clone")
	if ok, _ := clone.ReplaceText("Find emails from", "Delete all from Ann"); !ok {
		t.Error("text not replaced")
	}
	clicked := make(chan struct{}, 1)
	clone.OnClick(func() { clicked <- struct{}{} })
	if err := clone.InsertAfter(find); err != nil {
		t.Fatal(err)
	}

	select {
	case els := <-added:
		if id, _, _ := els[0].Attr("id"); id != "clone" {
			t.Errorf("observed: got %q", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("mutation not reported")
	}

	next, _ := find.NextSibling()
	if text, _ := next.Text(); text != "Delete all from Ann" {
		t.Errorf("inserted text: got %q", text)
	}
	next.Click()
	select {
	case <-clicked:
	case <-time.After(5 * time.Second):
		t.Fatal("click not reported")
	}
}

func TestFragmentAndSession(t *testing.T) {
	doc, p := openPage(t)

	frags := make(chan string, 1)
	doc.OnFragmentChange(func(f string) { frags <- f })
	if err := doc.SetFragment("search/from:ann@example.com"); err != nil {
		t.Fatal(err)
	}
	select {
	case f := <-frags:
		if f != "search/from:ann@example.com" {
			t.Errorf("fragment: got %q", f)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hashchange not reported")
	}

	ctx := context.Background()
	s := SessionStore{Page: p, Key: "test-pending"}
	if set, _ := s.IsSet(ctx); set {
		t.Error("set before Set")
	}
	if err := s.Set(ctx); err != nil {
		t.Fatal(err)
	}
	if set, err := s.IsSet(ctx); err != nil || !set {
		t.Errorf("after Set: %v %v", set, err)
	}
	s.Clear(ctx)
	if set, _ := s.IsSet(ctx); set {
		t.Error("set after Clear")
	}
}
