package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/keyvet/internal/keyfile"
	"github.com/nao1215/keyvet/internal/model"
	"github.com/nao1215/keyvet/internal/probe"
	"github.com/nao1215/keyvet/internal/report"
)

// ProgressFunc is called before each key check with the 1-based position,
// the total key count, and the masked form of the key about to be checked.
type ProgressFunc func(current, total int, masked string)

// CheckKeysStep validates every key sequentially against the endpoint.
//
// Design decision: Checks run strictly one at a time with a fixed pause
// between requests. Concurrency would finish faster but burst traffic
// trips per-IP rate limits on exactly the endpoints people validate
// against, which turns valid keys into false "HTTP 429" results.
type CheckKeysStep struct {
	// checker issues the HTTP requests.
	checker *probe.Checker

	// keys are the raw keys in input-file order.
	keys []string

	// delay is the pause between consecutive checks.
	delay time.Duration

	// progress, when set, is called before each check.
	progress ProgressFunc

	// logger for structured logging.
	logger *slog.Logger
}

// CheckKeysStepOption configures a CheckKeysStep.
type CheckKeysStepOption func(*CheckKeysStep)

// WithDelay sets the pause between consecutive key checks.
func WithDelay(d time.Duration) CheckKeysStepOption {
	return func(s *CheckKeysStep) {
		s.delay = d
	}
}

// WithProgress sets a callback invoked before each key check.
func WithProgress(fn ProgressFunc) CheckKeysStepOption {
	return func(s *CheckKeysStep) {
		s.progress = fn
	}
}

// WithCheckLogger sets a custom logger for the check step.
func WithCheckLogger(logger *slog.Logger) CheckKeysStepOption {
	return func(s *CheckKeysStep) {
		s.logger = logger
	}
}

// NewCheckKeysStep creates the step that validates all keys.
func NewCheckKeysStep(checker *probe.Checker, keys []string, opts ...CheckKeysStepOption) *CheckKeysStep {
	s := &CheckKeysStep{
		checker: checker,
		keys:    keys,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CheckKeysStep) Name() string {
	return "check_keys"
}

// Do checks every key in order and fills the report's results.
// Results are sorted active-first before the step returns, so every
// later step and writer sees the final ordering.
func (s *CheckKeysStep) Do(ctx context.Context, rep *model.RunReport) error {
	rep.StartedAt = time.Now()
	rep.Results = make([]model.KeyResult, 0, len(s.keys))

	total := len(s.keys)
	for i, key := range s.keys {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.progress != nil {
			s.progress(i+1, total, model.MaskKey(key))
		}

		result := s.checker.Check(ctx, i+1, key)
		rep.Results = append(rep.Results, result)

		s.logger.Debug("key checked",
			"index", result.Index,
			"key", result.Masked,
			"status", result.Status.String(),
			"code", result.StatusCode,
			"latency", result.Latency,
		)

		// Pause between keys, but never after the last one and never
		// past a cancelled context.
		if s.delay > 0 && i < total-1 {
			timer := time.NewTimer(s.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	rep.Duration = time.Since(rep.StartedAt)
	rep.Sort()

	return nil
}

// WriteActiveStep writes the active keys to the configured file.
// A write failure is a step error, but the pipeline runs it with
// continue-on-error so the validation results are never discarded
// because of an unwritable path.
type WriteActiveStep struct {
	// path is the destination file.
	path string

	// logger for structured logging.
	logger *slog.Logger
}

// NewWriteActiveStep creates the step that persists active keys.
func NewWriteActiveStep(path string, logger *slog.Logger) *WriteActiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteActiveStep{path: path, logger: logger}
}

// Name returns the step name.
func (s *WriteActiveStep) Name() string {
	return "write_active"
}

// Do writes the active keys, one per line with a trailing comma.
func (s *WriteActiveStep) Do(_ context.Context, rep *model.RunReport) error {
	keys := rep.ActiveKeys()
	if err := keyfile.WriteActive(s.path, keys); err != nil {
		return err
	}

	s.logger.Info("active keys written",
		"path", s.path,
		"count", len(keys),
	)
	return nil
}

// DebugLogStep writes the per-key debug log file.
// Like WriteActiveStep, a failure here must not abort the run.
type DebugLogStep struct {
	// path is the destination file.
	path string

	// authMode is recorded in each debug entry.
	authMode string

	// logger for structured logging.
	logger *slog.Logger
}

// NewDebugLogStep creates the step that writes the debug log.
func NewDebugLogStep(path, authMode string, logger *slog.Logger) *DebugLogStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugLogStep{path: path, authMode: authMode, logger: logger}
}

// Name returns the step name.
func (s *DebugLogStep) Name() string {
	return "debug_log"
}

// Do renders and writes the debug log.
func (s *DebugLogStep) Do(_ context.Context, rep *model.RunReport) error {
	if err := report.WriteDebugLog(s.path, rep, s.authMode); err != nil {
		return err
	}

	s.logger.Info("debug log written", "path", s.path)
	return nil
}

// DefaultSteps returns the standard step sequence for a validation run:
// check every key, write the active-keys file, write the debug log.
func DefaultSteps(checker *probe.Checker, keys []string, activePath, debugPath string, logger *slog.Logger, checkOpts ...CheckKeysStepOption) []Step {
	if logger == nil {
		logger = slog.Default()
	}
	authMode := checker.AuthMode().String()
	checkOpts = append(checkOpts, WithCheckLogger(logger))
	return []Step{
		NewCheckKeysStep(checker, keys, checkOpts...),
		NewWriteActiveStep(activePath, logger),
		NewDebugLogStep(debugPath, authMode, logger),
	}
}
