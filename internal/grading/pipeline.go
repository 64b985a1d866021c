// Package grading composes the Execution Engine with the Repository to
// grade a submission against a stored Problem: exact-output comparison,
// tried/solved counters, and an idempotent per-user solve set.
package grading

import (
	"context"
	"strings"

	"codejudge/internal/domain"
	cjerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Runner is the subset of the Execution Engine the Grading Pipeline needs.
type Runner interface {
	Run(ctx context.Context, submissionID string, sub domain.Submission) (domain.ExecutionResult, error)
}

// Repository is the subset of the persistence port the Grading Pipeline
// needs.
type Repository interface {
	GetProblem(ctx context.Context, id uint64) (*domain.Problem, error)
	IncrementTried(ctx context.Context, id uint64) error
	IncrementSolved(ctx context.Context, id uint64) error
	AddSolve(ctx context.Context, username string, problemID uint64) error
}

// Pipeline grades submissions against stored problems.
type Pipeline struct {
	runner Runner
	repo   Repository
}

// New builds a Pipeline over runner and repo.
func New(runner Runner, repo Repository) *Pipeline {
	return &Pipeline{runner: runner, repo: repo}
}

// Grade runs the protocol of spec §4.3: resolve the problem, count the
// attempt, execute, compare, and on a match credit the user idempotently.
func (p *Pipeline) Grade(ctx context.Context, submissionID, username string, problemID uint64, code string, language domain.Language) (domain.GradingOutcome, error) {
	if !language.Valid() {
		return domain.GradingOutcome{}, cjerrors.Newf(cjerrors.LanguageNotSupported, "unsupported language %q", language)
	}

	problem, err := p.repo.GetProblem(ctx, problemID)
	if err != nil {
		return domain.GradingOutcome{}, err
	}

	// tried increments before execution; it is the only side effect a
	// failing submission incurs.
	if err := p.repo.IncrementTried(ctx, problemID); err != nil {
		return domain.GradingOutcome{}, err
	}

	sub := domain.Submission{
		Code:       code,
		Language:   language,
		Stdin:      problem.Input,
		ProblemID:  problemID,
		HasProblem: true,
		Username:   username,
	}

	result, err := p.runner.Run(ctx, submissionID, sub)
	if err != nil {
		return domain.GradingOutcome{}, err
	}

	if result.Verdict != domain.VerdictOk {
		return domain.GradingOutcome{Verdict: verdictToOutcome(result.Verdict), Result: result}, nil
	}

	if !outputMatches(result.Stdout, problem.Output) {
		return domain.GradingOutcome{Verdict: domain.OutcomeWrongAnswer, Result: result}, nil
	}

	if err := p.repo.AddSolve(ctx, username, problemID); err != nil {
		return domain.GradingOutcome{}, err
	}
	if err := p.repo.IncrementSolved(ctx, problemID); err != nil {
		// The solve is already recorded and is idempotent to retry; a
		// failure to bump the counter does not undo the credit.
		logger.Error(ctx, "increment solved failed after solve was recorded",
			zap.Uint64("problem_id", problemID), zap.String("username", username), zap.Error(err))
		return domain.GradingOutcome{}, err
	}

	return domain.GradingOutcome{Verdict: domain.OutcomeAccepted, Result: result}, nil
}

// outputMatches compares after trimming ASCII whitespace on both sides; no
// internal whitespace normalization, per the still-open spec question.
func outputMatches(got, want string) bool {
	return strings.Trim(got, " \t\r\n\v\f") == strings.Trim(want, " \t\r\n\v\f")
}

func verdictToOutcome(v domain.Verdict) domain.Outcome {
	switch v {
	case domain.VerdictCompileError:
		return domain.OutcomeCompileError
	case domain.VerdictRuntimeError:
		return domain.OutcomeRuntimeError
	case domain.VerdictTimeLimitExceeded:
		return domain.OutcomeTimeLimitExceeded
	default:
		return domain.OutcomeInternalError
	}
}
