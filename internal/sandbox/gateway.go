// Package sandbox implements the narrow command-execution contract over the
// externally managed isolation unit the rest of the system calls
// "code-sandbox". Nothing above this package knows how files actually get
// copied in or how commands are actually run.
package sandbox

import (
	"context"
	"io"
	"sync"
	"time"

	cjerrors "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// ExecResult carries a child process's full exit information. The Gateway
// never interprets it.
type ExecResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Signalled bool
	WallTime  time.Duration
	// Memory is populated only when the transport can report it; callers
	// must treat an empty string as "unknown".
	Memory string
}

// Transport is the thing that actually reaches the sandbox: a local
// filesystem rooted at a directory, an SSH session, a container exec API,
// and so on. The Gateway adds liveness-checking, optional retry and logging
// on top of whatever a Transport provides.
type Transport interface {
	CopyIn(ctx context.Context, hostPath, sandboxPath string) error
	Exec(ctx context.Context, shellCommand string, stdin io.Reader) (ExecResult, error)
	Remove(ctx context.Context, sandboxGlob string) error
	Ping(ctx context.Context) error
}

// Config controls Gateway behavior that is not part of the Transport
// contract itself.
type Config struct {
	// RetryCopyIn permits exactly one retry of a failed CopyIn call. Off by
	// default, per the single permitted local recovery.
	RetryCopyIn bool
}

// Gateway is the sole component that touches the isolation boundary.
type Gateway struct {
	transport Transport
	cfg       Config

	livenessOnce sync.Once
	livenessErr  error
}

// NewGateway wraps a Transport with the Gateway contract.
func NewGateway(transport Transport, cfg Config) *Gateway {
	return &Gateway{transport: transport, cfg: cfg}
}

// ensureLive verifies the sandbox's liveness on first use per process. A
// failed liveness check is cached: the Gateway never retries a dead
// sandbox into existence.
func (g *Gateway) ensureLive(ctx context.Context) error {
	g.livenessOnce.Do(func() {
		if err := g.transport.Ping(ctx); err != nil {
			g.livenessErr = cjerrors.Wrap(err, cjerrors.SandboxUnavailable)
		}
	})
	return g.livenessErr
}

// CopyIn copies a host file into the sandbox. Atomic from the caller's
// perspective: either the file ends up at sandboxPath or the call fails.
func (g *Gateway) CopyIn(ctx context.Context, hostPath, sandboxPath string) error {
	if err := g.ensureLive(ctx); err != nil {
		return err
	}

	err := g.transport.CopyIn(ctx, hostPath, sandboxPath)
	if err != nil && g.cfg.RetryCopyIn {
		logger.Warn(ctx, "sandbox copy-in failed, retrying once",
			zap.String("sandbox_path", sandboxPath), zap.Error(err))
		err = g.transport.CopyIn(ctx, hostPath, sandboxPath)
	}
	if err != nil {
		return cjerrors.Wrap(err, cjerrors.SandboxUnavailable)
	}
	return nil
}

// Exec runs a literal shell command inside the sandbox. Arguments are
// passed through unescaped; the caller is responsible for building a safe
// command string.
func (g *Gateway) Exec(ctx context.Context, shellCommand string, stdin io.Reader) (ExecResult, error) {
	if err := g.ensureLive(ctx); err != nil {
		return ExecResult{}, err
	}

	res, err := g.transport.Exec(ctx, shellCommand, stdin)
	if err != nil {
		return ExecResult{}, cjerrors.Wrap(err, cjerrors.SandboxUnavailable)
	}
	return res, nil
}

// CleanupGlob removes a submission's artifacts. Best-effort: failures are
// logged, never surfaced as a fatal condition to the caller's verdict, but
// the error is still returned so the Engine can decide whether to fold it
// into an aggregate cleanup-failure log line.
func (g *Gateway) CleanupGlob(ctx context.Context, sandboxGlob string) error {
	if err := g.ensureLive(ctx); err != nil {
		return err
	}
	if err := g.transport.Remove(ctx, sandboxGlob); err != nil {
		logger.Warn(ctx, "sandbox cleanup failed",
			zap.String("glob", sandboxGlob), zap.Error(err))
		return err
	}
	return nil
}
