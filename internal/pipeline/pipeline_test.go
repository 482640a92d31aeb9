package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/keyvet/internal/model"
)

// fakeStep is a minimal Step for pipeline orchestration tests.
type fakeStep struct {
	name   string
	err    error
	called bool
}

func (s *fakeStep) Do(_ context.Context, _ *model.RunReport) error {
	s.called = true
	return s.err
}

func (s *fakeStep) Name() string { return s.name }

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		a := &fakeStep{name: "a"}
		b := &fakeStep{name: "b"}

		p := New()
		p.AddSteps(a, b)

		if err := p.Execute(context.Background(), &model.RunReport{}); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !a.called || !b.called {
			t.Error("expected both steps to run")
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		a := &fakeStep{name: "a", err: boom}
		b := &fakeStep{name: "b"}

		p := New()
		p.AddSteps(a, b)

		rep := &model.RunReport{}
		if err := p.Execute(context.Background(), rep); !errors.Is(err, boom) {
			t.Fatalf("Execute() error = %v, want boom", err)
		}
		if b.called {
			t.Error("expected pipeline to stop before step b")
		}
		if rep.ErrorMessage != "boom" {
			t.Errorf("ErrorMessage = %q, want boom", rep.ErrorMessage)
		}
	})

	t.Run("continue on error runs remaining steps", func(t *testing.T) {
		t.Parallel()

		a := &fakeStep{name: "a", err: errors.New("boom")}
		b := &fakeStep{name: "b"}

		p := New(WithContinueOnError(true))
		p.AddSteps(a, b)

		if err := p.Execute(context.Background(), &model.RunReport{}); err != nil {
			t.Fatalf("Execute() error = %v, want nil", err)
		}
		if !b.called {
			t.Error("expected step b to run after step a failed")
		}
	})

	t.Run("cancelled context stops the pipeline", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := &fakeStep{name: "a"}
		p := New()
		p.AddStep(a)

		if err := p.Execute(ctx, &model.RunReport{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() error = %v, want context.Canceled", err)
		}
		if a.called {
			t.Error("expected no step to run after cancellation")
		}
	})

	t.Run("step names reported in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&fakeStep{name: "one"}, &fakeStep{name: "two"})

		names := p.StepNames()
		if p.StepCount() != 2 || names[0] != "one" || names[1] != "two" {
			t.Errorf("unexpected step names: %v", names)
		}
	})
}
