// Package dispatcher is the concurrent front door: it accepts submissions
// from the HTTP adapter, enforces bounded parallelism onto the shared
// sandbox, applies per-submission deadlines, and returns typed results.
package dispatcher

import (
	"context"
	"runtime"
	"time"

	"codejudge/internal/domain"
	cjerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner is the subset of the Execution Engine the Dispatcher drives
// directly for free-run submissions.
type Runner interface {
	Run(ctx context.Context, submissionID string, sub domain.Submission) (domain.ExecutionResult, error)
}

// Grader is the subset of the Grading Pipeline the Dispatcher drives for
// graded submissions.
type Grader interface {
	Grade(ctx context.Context, submissionID, username string, problemID uint64, code string, language domain.Language) (domain.GradingOutcome, error)
}

// Archiver is a best-effort sink for graded submission source, audited
// independently of grading's own success or failure. A nil Archiver
// disables archiving entirely.
type Archiver interface {
	ArchiveBestEffort(ctx context.Context, submissionID, language, code string)
}

// Config controls pool sizing and deadline budgets.
type Config struct {
	// PoolSize bounds concurrent submissions; defaults to NumCPU.
	PoolSize int
	// TimeLimitSeconds mirrors the Execution Engine's run-step budget.
	TimeLimitSeconds int
	// CompileBudgetSeconds is the compile allowance counted into the
	// deadline; the Execution Engine's own compile timeout is configured
	// separately and is not read from here.
	CompileBudgetSeconds int
	// GracePeriodSeconds pads the deadline beyond TimeLimit+CompileBudget.
	GracePeriodSeconds int
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = runtime.NumCPU()
	}
	if c.TimeLimitSeconds <= 0 {
		c.TimeLimitSeconds = 2
	}
	if c.CompileBudgetSeconds <= 0 {
		c.CompileBudgetSeconds = 6
	}
	if c.GracePeriodSeconds <= 0 {
		c.GracePeriodSeconds = 2
	}
	return c
}

func (c Config) deadline() time.Duration {
	return time.Duration(c.TimeLimitSeconds+c.CompileBudgetSeconds+c.GracePeriodSeconds) * time.Second
}

// Dispatcher is the concurrent entry point for free-run and graded
// submissions.
type Dispatcher struct {
	runner   Runner
	grader   Grader
	archiver Archiver
	cfg      Config
	sem      chan struct{}
}

// New builds a Dispatcher bounding concurrent submissions per cfg.PoolSize.
func New(runner Runner, grader Grader, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		runner: runner,
		grader: grader,
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.PoolSize),
	}
}

// WithArchiver attaches a, which SubmitGraded fires for every graded
// submission once grading completes. Returns d for chaining at
// construction time.
func (d *Dispatcher) WithArchiver(a Archiver) *Dispatcher {
	d.archiver = a
	return d
}

// acquire blocks until a pool slot is free or ctx is cancelled first.
func (d *Dispatcher) acquire(ctx context.Context) error {
	select {
	case d.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) release() { <-d.sem }

// SubmitFreeRun runs code without comparison against any stored problem.
func (d *Dispatcher) SubmitFreeRun(ctx context.Context, code string, language domain.Language, stdin string) (domain.ExecutionResult, error) {
	submissionID := uuid.NewString()

	deadlineCtx, cancel := context.WithTimeout(ctx, d.cfg.deadline())
	defer cancel()

	if err := d.acquire(deadlineCtx); err != nil {
		return domain.ExecutionResult{}, mapCancellation(err)
	}
	defer d.release()

	sub := domain.Submission{Code: code, Language: language, Stdin: stdin}
	result, err := d.runner.Run(deadlineCtx, submissionID, sub)
	if err != nil {
		return domain.ExecutionResult{}, mapDeadline(deadlineCtx, submissionID, err)
	}
	return result, nil
}

// SubmitGraded runs code and grades it against problemID on behalf of
// username.
func (d *Dispatcher) SubmitGraded(ctx context.Context, username string, problemID uint64, code string, language domain.Language) (domain.GradingOutcome, error) {
	submissionID := uuid.NewString()

	deadlineCtx, cancel := context.WithTimeout(ctx, d.cfg.deadline())
	defer cancel()

	if err := d.acquire(deadlineCtx); err != nil {
		return domain.GradingOutcome{}, mapCancellation(err)
	}
	defer d.release()

	outcome, err := d.grader.Grade(deadlineCtx, submissionID, username, problemID, code, language)
	if err != nil {
		return domain.GradingOutcome{}, mapDeadline(deadlineCtx, submissionID, err)
	}
	if d.archiver != nil {
		go d.archiver.ArchiveBestEffort(context.WithoutCancel(ctx), submissionID, string(language), code)
	}
	return outcome, nil
}

// mapCancellation maps a failed pool admission: the submission's own
// deadline expiring while queued becomes SubmissionDeadlineExceeded, and any
// other cancellation is wrapped as InternalServerError.
func mapCancellation(err error) error {
	if err == context.DeadlineExceeded {
		return cjerrors.New(cjerrors.SubmissionDeadlineExceeded).WithMessage("submission deadline exceeded")
	}
	return cjerrors.Wrap(err, cjerrors.InternalServerError)
}

// mapDeadline maps an uncaught error to InternalError, preserving
// domain-specific codes (verdicts, BadRequest-style errors) untouched and
// only relabeling true deadline expiry.
func mapDeadline(ctx context.Context, submissionID string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		logger.Warn(context.Background(), "submission deadline exceeded",
			zap.String("submission_id", submissionID))
		return cjerrors.New(cjerrors.SubmissionDeadlineExceeded).WithMessage("submission deadline exceeded")
	}
	if custom := cjerrors.GetError(err); custom != nil {
		return custom
	}
	return cjerrors.Wrap(err, cjerrors.InternalServerError)
}
