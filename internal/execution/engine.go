// Package execution turns a domain.Submission into a domain.ExecutionResult
// by driving the per-language prepare/compile/run/classify/cleanup recipe
// over a sandbox.Gateway.
package execution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"codejudge/internal/domain"
	"codejudge/internal/sandbox"
	cjerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// stdoutCap bounds how much of a program's stdout is retained; matches the
// sandbox transport's own write-time cap so truncation is consistent.
const stdoutCap = 1 << 20 // 1 MiB

// Config controls timing defaults for every recipe the Engine runs.
type Config struct {
	// TimeLimitSeconds is the run step's wall-clock budget, whole seconds.
	TimeLimitSeconds int
	// CompileTimeoutSeconds bounds the compile step; it is not part of the
	// reported runtime.
	CompileTimeoutSeconds int
	// HostWorkRoot is where per-submission host temp directories are
	// created.
	HostWorkRoot string
	// ExtraCompileFlags holds operator-supplied, language-specific extra
	// compiler flags (e.g. "-O2 -Wall") read from configuration. They are
	// tokenized and re-quoted before interpolation into the compile command,
	// never interpolated as a raw string.
	ExtraCompileFlags map[domain.Language]string
}

func (c Config) withDefaults() Config {
	if c.TimeLimitSeconds <= 0 {
		c.TimeLimitSeconds = 2
	}
	if c.CompileTimeoutSeconds <= 0 {
		c.CompileTimeoutSeconds = 10
	}
	if c.HostWorkRoot == "" {
		c.HostWorkRoot = os.TempDir()
	}
	return c
}

// Engine drives the prepare -> compile? -> run -> classify -> cleanup
// recipe for every language in the language table.
type Engine struct {
	gateway *sandbox.Gateway
	cfg     Config

	mu     sync.Mutex
	active map[string]struct{}
}

// New builds an Engine over gateway.
func New(gateway *sandbox.Gateway, cfg Config) *Engine {
	return &Engine{
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		active:  make(map[string]struct{}),
	}
}

// Run executes sub under submissionID, which namespaces both the host temp
// directory and the sandbox subdirectory so concurrent submissions never
// collide. Run always cleans up every file it created, on every exit path.
func (e *Engine) Run(ctx context.Context, submissionID string, sub domain.Submission) (domain.ExecutionResult, error) {
	spec, ok := lookupLanguage(sub.Language)
	if !ok {
		return domain.ExecutionResult{}, cjerrors.Newf(cjerrors.LanguageNotSupported, "unsupported language %q", sub.Language)
	}

	if err := e.reserve(submissionID); err != nil {
		return domain.ExecutionResult{}, err
	}
	defer e.release(submissionID)

	hostDir := filepath.Join(e.cfg.HostWorkRoot, submissionID)
	sandboxDir := path("sandbox", submissionID)

	var cleanupErr error
	defer func() {
		if err := os.RemoveAll(hostDir); err != nil {
			cleanupErr = multierr.Append(cleanupErr, err)
		}
		if err := e.gateway.CleanupGlob(context.WithoutCancel(ctx), sandboxDir); err != nil {
			cleanupErr = multierr.Append(cleanupErr, err)
		}
		if cleanupErr != nil {
			logger.Warn(ctx, "execution cleanup had failures",
				zap.String("submission_id", submissionID), zap.Error(cleanupErr))
		}
	}()

	// 1. Prepare: write source and stdin to host temp files.
	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return domain.ExecutionResult{}, cjerrors.Wrap(err, cjerrors.InternalServerError)
	}
	hostSource := filepath.Join(hostDir, spec.SourceFile)
	hostInput := filepath.Join(hostDir, "input.txt")
	if err := os.WriteFile(hostSource, []byte(sub.Code), 0o644); err != nil {
		return domain.ExecutionResult{}, cjerrors.Wrap(err, cjerrors.InternalServerError)
	}
	if err := os.WriteFile(hostInput, []byte(sub.Stdin), 0o644); err != nil {
		return domain.ExecutionResult{}, cjerrors.Wrap(err, cjerrors.InternalServerError)
	}

	// 2. Ship in.
	sandboxSource := sandboxDir + "/" + spec.SourceFile
	sandboxInput := sandboxDir + "/input.txt"
	if err := e.gateway.CopyIn(ctx, hostSource, sandboxSource); err != nil {
		return domain.ExecutionResult{}, err
	}
	if err := e.gateway.CopyIn(ctx, hostInput, sandboxInput); err != nil {
		return domain.ExecutionResult{}, err
	}

	// 3. Compile, if applicable.
	if spec.CompileEnabled {
		compileCmd, err := appendExtraFlags(spec.CompileCmd, e.cfg.ExtraCompileFlags[spec.ID])
		if err != nil {
			return domain.ExecutionResult{}, cjerrors.Wrap(err, cjerrors.InternalServerError)
		}
		compileCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.CompileTimeoutSeconds)*time.Second)
		cmd := fmt.Sprintf("cd %s && %s", sandboxDir, compileCmd)
		res, err := e.gateway.Exec(compileCtx, cmd, nil)
		cancel()
		if err != nil {
			return domain.ExecutionResult{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ExecutionResult{}, ctxErr
		}
		if res.ExitCode != 0 || strings.Contains(res.Stderr, "error:") {
			payload := res.Stderr
			if payload == "" {
				payload = res.Stdout
			}
			logger.Info(ctx, "compile error",
				zap.String("submission_id", submissionID), zap.Int("exit_code", res.ExitCode))
			return domain.ExecutionResult{
				Stderr:  truncate(payload, stdoutCap),
				Runtime: "0.000s",
				Memory:  "N/A",
				Verdict: domain.VerdictCompileError,
			}, nil
		}
	}

	// 4. Run, wrapped in the sandbox's own timeout utility; measure wall
	// time around this call only.
	runCmd := fmt.Sprintf("cd %s && timeout -s KILL %d %s < input.txt",
		sandboxDir, e.cfg.TimeLimitSeconds, spec.RunCmd)

	start := time.Now()
	res, err := e.gateway.Exec(ctx, runCmd, nil)
	wall := time.Since(start)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	// A cancelled or expired ctx is reported as an error, not as a verdict.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ExecutionResult{}, ctxErr
	}

	return classify(res, wall), nil
}

// classify maps a raw ExecResult onto a verdict per the exit-code table:
// 124/137 -> TimeLimitExceeded, 0 -> Ok, anything else -> RuntimeError.
func classify(res sandbox.ExecResult, wall time.Duration) domain.ExecutionResult {
	runtime := fmt.Sprintf("%.3fs", wall.Seconds())
	memory := res.Memory
	if memory == "" {
		memory = "N/A"
	}

	switch {
	case res.ExitCode == 124 || res.ExitCode == 137:
		return domain.ExecutionResult{
			Runtime: runtime,
			Memory:  memory,
			Verdict: domain.VerdictTimeLimitExceeded,
		}
	case res.ExitCode == 0:
		return domain.ExecutionResult{
			Stdout:  truncate(res.Stdout, stdoutCap),
			Stderr:  truncate(res.Stderr, stdoutCap),
			Runtime: runtime,
			Memory:  memory,
			Verdict: domain.VerdictOk,
		}
	default:
		stderr := res.Stderr
		if stderr == "" {
			stderr = "Program exited with code " + strconv.Itoa(res.ExitCode)
		}
		return domain.ExecutionResult{
			Stdout:  truncate(res.Stdout, stdoutCap),
			Stderr:  truncate(stderr, stdoutCap),
			Runtime: runtime,
			Memory:  memory,
			Verdict: domain.VerdictRuntimeError,
		}
	}
}

func truncate(s string, cap int) string {
	if len(s) <= cap {
		return s
	}
	return s[:cap] + "\n...[truncated]"
}

func path(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}

// appendExtraFlags tokenizes raw (operator-supplied, whitespace-separated
// flags) and re-quotes each token before appending it to baseCmd, so a flag
// containing shell metacharacters cannot break out of its argument position.
func appendExtraFlags(baseCmd, raw string) (string, error) {
	if raw == "" {
		return baseCmd, nil
	}
	tokens, err := shlex.Split(raw)
	if err != nil {
		return "", fmt.Errorf("parse extra compile flags %q: %w", raw, err)
	}
	var b strings.Builder
	b.WriteString(baseCmd)
	for _, tok := range tokens {
		b.WriteByte(' ')
		b.WriteString(shellQuote(tok))
	}
	return b.String(), nil
}

// shellQuote wraps tok in single quotes, escaping any embedded single quote
// the POSIX-shell way: close the quote, emit an escaped quote, reopen it.
func shellQuote(tok string) string {
	return "'" + strings.ReplaceAll(tok, "'", `'\''`) + "'"
}

// reserve guards against submission id reuse racing two Run calls onto the
// same sandbox subdirectory; with Dispatcher-issued UUIDs this should never
// trigger, but the registry keeps the invariant explicit rather than
// assumed.
func (e *Engine) reserve(submissionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.active[submissionID]; exists {
		return cjerrors.Newf(cjerrors.InternalServerError, "submission id %s already in flight", submissionID)
	}
	e.active[submissionID] = struct{}{}
	return nil
}

func (e *Engine) release(submissionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, submissionID)
}
