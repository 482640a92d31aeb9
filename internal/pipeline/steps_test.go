package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/keyvet/internal/model"
	"github.com/nao1215/keyvet/internal/probe"
)

// newTestServer accepts exactly one key via query parameter.
func newTestServer(t *testing.T, activeKey string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == activeKey {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckKeysStep(t *testing.T) {
	t.Parallel()

	t.Run("one result per key, sorted active first", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, "live-key")
		checker := probe.NewChecker(srv.Client(), srv.URL)

		step := NewCheckKeysStep(checker, []string{"dead-key-1", "live-key", "dead-key-2"})
		rep := &model.RunReport{}
		if err := step.Do(context.Background(), rep); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if len(rep.Results) != 3 {
			t.Fatalf("got %d results, want 3", len(rep.Results))
		}
		if rep.Results[0].Index != 2 || !rep.Results[0].OK {
			t.Errorf("first result should be the active key (index 2), got %+v", rep.Results[0])
		}
		if rep.Results[1].Index != 1 || rep.Results[2].Index != 3 {
			t.Errorf("failed keys should keep input order, got indexes %d, %d",
				rep.Results[1].Index, rep.Results[2].Index)
		}
		if rep.StartedAt.IsZero() {
			t.Error("StartedAt not set")
		}
	})

	t.Run("progress callback fires per key in input order", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, "live-key")
		checker := probe.NewChecker(srv.Client(), srv.URL)

		var seen []int
		step := NewCheckKeysStep(checker, []string{"aaaaaaaaaaaa", "bbbbbbbbbbbb"},
			WithProgress(func(current, total int, masked string) {
				seen = append(seen, current)
				if total != 2 {
					t.Errorf("total = %d, want 2", total)
				}
				if strings.Contains(masked, "aaaaaaaaaaaa") {
					t.Error("progress callback received an unmasked key")
				}
			}))

		if err := step.Do(context.Background(), &model.RunReport{}); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
			t.Errorf("progress calls = %v, want [1 2]", seen)
		}
	})

	t.Run("cancellation stops between keys", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		srv := newTestServer(t, "live-key")
		checker := probe.NewChecker(srv.Client(), srv.URL)

		step := NewCheckKeysStep(checker, []string{"key-one-xxxx", "key-two-xxxx"},
			WithProgress(func(current, _ int, _ string) {
				if current == 1 {
					cancel()
				}
			}))

		rep := &model.RunReport{}
		if err := step.Do(ctx, rep); err == nil {
			t.Fatal("expected cancellation error")
		}
		if len(rep.Results) > 1 {
			t.Errorf("got %d results after cancellation, want at most 1", len(rep.Results))
		}
	})
}

func TestWriteActiveStep(t *testing.T) {
	t.Parallel()

	t.Run("writes active keys", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "active.txt")
		rep := &model.RunReport{
			Results: []model.KeyResult{
				{Index: 1, Key: "live-key", OK: true, Status: model.StatusActive},
				{Index: 2, Key: "dead-key", Status: model.StatusInvalid},
			},
		}

		step := NewWriteActiveStep(path, nil)
		if err := step.Do(context.Background(), rep); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "live-key,\n" {
			t.Errorf("active file = %q, want 'live-key,\\n'", string(data))
		}
	})

	t.Run("unwritable path is an error", func(t *testing.T) {
		t.Parallel()

		step := NewWriteActiveStep(filepath.Join(t.TempDir(), "no", "dir", "active.txt"), nil)
		if err := step.Do(context.Background(), &model.RunReport{}); err == nil {
			t.Error("expected error for unwritable path")
		}
	})
}

func TestDebugLogStep(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keyvet_debug.log")
	rep := &model.RunReport{
		Endpoint: "https://api.example.com",
		Results: []model.KeyResult{
			{Index: 1, Masked: "li...ey", StatusCode: 200, BodyPreview: "ok"},
		},
	}

	step := NewDebugLogStep(path, "query", nil)
	if err := step.Do(context.Background(), rep); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "DEBUG VALIDATION LOG\n") {
		t.Error("debug log missing header")
	}
}

func TestDefaultSteps(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "live-key")
	checker := probe.NewChecker(srv.Client(), srv.URL)

	dir := t.TempDir()
	steps := DefaultSteps(checker, []string{"live-key"},
		filepath.Join(dir, "active.txt"), filepath.Join(dir, "debug.log"), nil)

	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	wantNames := []string{"check_keys", "write_active", "debug_log"}
	for i, want := range wantNames {
		if steps[i].Name() != want {
			t.Errorf("steps[%d].Name() = %q, want %q", i, steps[i].Name(), want)
		}
	}

	p := New(WithContinueOnError(true))
	p.AddSteps(steps...)
	rep := &model.RunReport{Endpoint: srv.URL}
	if err := p.Execute(context.Background(), rep); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rep.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", rep.ActiveCount())
	}
}
