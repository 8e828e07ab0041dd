package senderpurge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/domclick/dom/memdom"
	"github.com/hazyhaar/domclick/eventloop"
	"github.com/hazyhaar/domclick/pending"
)

// resultsPage renders a search results view. Empty parts are left out.
func resultsPage(toolbar, banner, confirm string) string {
	return `<html><body>` + toolbar + banner +
		`<table class="F cf zt"><tbody>` +
		`<tr class="zA"><td><span email="ann@example.com">Ann</span></td></tr>` +
		`<tr class="zA"><td><span email="ann@example.com">Ann</span></td></tr>` +
		`</tbody></table>` + confirm + `</body></html>`
}

const (
	fullToolbar = `<div gh="mtb"><div role="checkbox" id="all"></div><div act="7" id="del"></div></div>`
	noSelectAll = `<div gh="mtb"><div act="7" id="del"></div></div>`
	noDelete    = `<div gh="mtb"><div role="checkbox" id="all"></div></div>`
	banner      = `<div class="ya"><span><a id="expand">Select all conversations that match this search</a></span></div>`
	okDialog    = `<div role="alertdialog"><button name="ok" id="ok">OK</button></div>`
)

// sleepRecorder returns immediately and records every requested wait.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newSequencer(t *testing.T, src string, answer bool) (*Sequencer, *memdom.Document, *memdom.Prompter, *sleepRecorder, *[]State) {
	t.Helper()
	doc, err := memdom.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	prompter := &memdom.Prompter{Answer: answer}
	sleeper := &sleepRecorder{}
	var states []State
	seq := &Sequencer{
		Doc:      doc,
		Exec:     eventloop.Inline{},
		Locator:  NewSelectorLocator(cfg),
		Prompter: prompter,
		Flag:     &pending.Memory{},
		Timing:   cfg.Timing,
		Sleep:    sleeper.Sleep,
		OnStep:   func(_ context.Context, s State) { states = append(states, s) },
	}
	return seq, doc, prompter, sleeper, &states
}

func flagSet(t *testing.T, s pending.Store) bool {
	t.Helper()
	set, err := s.IsSet(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestBeginNavigates(t *testing.T) {
	seq, doc, prompter, _, states := newSequencer(t, resultsPage("", "", ""), true)

	out := seq.Begin(context.Background(), Sender{Email: "ann@example.com", Name: "Ann"})
	if out.Result != Navigated {
		t.Fatalf("result: got %+v, want navigated", out)
	}
	if doc.Fragment() != "search/from:ann@example.com" {
		t.Errorf("fragment: got %q", doc.Fragment())
	}
	if !flagSet(t, seq.Flag) {
		t.Error("flag not set before navigation")
	}
	if len(prompter.Confirms) != 1 || !strings.Contains(prompter.Confirms[0], `"ann@example.com"`) {
		t.Errorf("confirm: got %q", prompter.Confirms)
	}
	if got := *states; len(got) != 2 || got[0] != StateConfirm || got[1] != StateNavigate {
		t.Errorf("states: got %v", got)
	}
}

func TestBeginCancelled(t *testing.T) {
	seq, doc, _, _, _ := newSequencer(t, resultsPage("", "", ""), false)

	out := seq.Begin(context.Background(), Sender{Name: "Ann"})
	if out.Result != Cancelled {
		t.Fatalf("result: got %+v, want cancelled", out)
	}
	if doc.Fragment() != "" {
		t.Errorf("navigated after cancel: %q", doc.Fragment())
	}
	if flagSet(t, seq.Flag) {
		t.Error("flag set after cancel")
	}
}

func TestResumeFullRun(t *testing.T) {
	seq, doc, prompter, sleeper, states := newSequencer(t, resultsPage(fullToolbar, banner, okDialog), true)
	ctx := context.Background()
	seq.Flag.Set(ctx)

	out := seq.Resume(ctx)
	if out.Result != Completed {
		t.Fatalf("result: got %+v, want completed", out)
	}
	if flagSet(t, seq.Flag) {
		t.Error("flag not cleared")
	}
	for _, id := range []string{"#all", "#expand", "#del", "#ok"} {
		el, _ := doc.Query(id)
		if n := doc.Clicks(el); n != 1 {
			t.Errorf("%s clicked %d times, want 1", id, n)
		}
	}
	if len(prompter.Alerts) != 0 {
		t.Errorf("alerts: %q", prompter.Alerts)
	}

	want := []time.Duration{time.Second, 800 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}
	if got := sleeper.Waits(); !equalDurations(got, want) {
		t.Errorf("waits: got %v, want %v", got, want)
	}
	wantStates := []State{StateAwaitResults, StateSelectAll, StateExpandSelection, StateDelete, StateConfirmBulk}
	if got := *states; len(got) != len(wantStates) {
		t.Errorf("states: got %v, want %v", got, wantStates)
	}
}

func TestResumeWithoutExpandOrDialog(t *testing.T) {
	seq, doc, _, sleeper, _ := newSequencer(t, resultsPage(fullToolbar, "", ""), true)
	ctx := context.Background()
	seq.Flag.Set(ctx)

	out := seq.Resume(ctx)
	if out.Result != Completed {
		t.Fatalf("result: got %+v, want completed", out)
	}
	del, _ := doc.Query("#del")
	if doc.Clicks(del) != 1 {
		t.Error("delete not clicked")
	}
	// No expand wait between select-all and delete.
	want := []time.Duration{time.Second, 800 * time.Millisecond, 500 * time.Millisecond}
	if got := sleeper.Waits(); !equalDurations(got, want) {
		t.Errorf("waits: got %v, want %v", got, want)
	}
	if doc.TotalClicks() != 2 {
		t.Errorf("clicks: got %d, want 2", doc.TotalClicks())
	}
}

func TestResumeTimeout(t *testing.T) {
	seq, doc, _, sleeper, _ := newSequencer(t, `<html><body><div gh="mtb"></div></body></html>`, true)
	ctx := context.Background()
	seq.Flag.Set(ctx)

	out := seq.Resume(ctx)
	if out.Result != TimedOut || out.Last != StateAwaitResults {
		t.Fatalf("result: got %+v, want timed out", out)
	}
	if flagSet(t, seq.Flag) {
		t.Error("flag not cleared on timeout")
	}
	if doc.TotalClicks() != 0 {
		t.Errorf("clicks: got %d, want 0", doc.TotalClicks())
	}
	// One initial wait, then an interval between each of 30 checks.
	if got := len(sleeper.Waits()); got != 30 {
		t.Errorf("waits: got %d, want 30", got)
	}
}

func TestResumeMissingControls(t *testing.T) {
	tests := []struct {
		name      string
		toolbar   string
		wantLast  State
		wantAlert string
		clicks    int
	}{
		{"no select-all", noSelectAll, StateSelectAll, "select-all checkbox", 0},
		{"no delete", noDelete, StateDelete, "delete button", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, doc, prompter, _, _ := newSequencer(t, resultsPage(tt.toolbar, "", okDialog), true)
			ctx := context.Background()
			seq.Flag.Set(ctx)

			out := seq.Resume(ctx)
			if out.Result != Aborted || out.Last != tt.wantLast {
				t.Fatalf("result: got %+v, want aborted at %s", out, tt.wantLast)
			}
			if len(prompter.Alerts) != 1 || !strings.Contains(prompter.Alerts[0], tt.wantAlert) {
				t.Errorf("alerts: got %q", prompter.Alerts)
			}
			if doc.TotalClicks() != tt.clicks {
				t.Errorf("clicks: got %d, want %d", doc.TotalClicks(), tt.clicks)
			}
			if flagSet(t, seq.Flag) {
				t.Error("flag not cleared")
			}
		})
	}
}

func TestResumeCancelledContext(t *testing.T) {
	seq, _, _, _, _ := newSequencer(t, resultsPage(fullToolbar, "", ""), true)
	seq.Flag.Set(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := seq.Resume(ctx)
	if out.Result != Interrupted {
		t.Fatalf("result: got %+v, want interrupted", out)
	}
	if !flagSet(t, seq.Flag) {
		t.Error("flag must survive for the next page")
	}
}

func TestConfirmMessageQuotesRawName(t *testing.T) {
	got := ConfirmMessage(Sender{Name: `Ann "Boss"`})
	if !strings.HasPrefix(got, `Delete ALL emails from "Ann "Boss""?`) {
		t.Errorf("got %q", got)
	}
}

func equalDurations(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
