package execution_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"codejudge/internal/domain"
	"codejudge/internal/execution"
	"codejudge/internal/sandbox"
)

// fakeTransport is a scripted sandbox.Transport: each Exec call returns the
// next queued result regardless of the command, so the Engine's recipe
// logic can be tested without a real compiler or interpreter installed.
type fakeTransport struct {
	execResults []sandbox.ExecResult
	execCalls   []string
	copyInCalls []string
	removeCalls []string
}

func (f *fakeTransport) Ping(ctx context.Context) error { return nil }

func (f *fakeTransport) CopyIn(ctx context.Context, hostPath, sandboxPath string) error {
	f.copyInCalls = append(f.copyInCalls, sandboxPath)
	return nil
}

func (f *fakeTransport) Exec(ctx context.Context, shellCommand string, stdin io.Reader) (sandbox.ExecResult, error) {
	f.execCalls = append(f.execCalls, shellCommand)
	idx := len(f.execCalls) - 1
	if idx < len(f.execResults) {
		return f.execResults[idx], nil
	}
	return sandbox.ExecResult{}, nil
}

func (f *fakeTransport) Remove(ctx context.Context, sandboxGlob string) error {
	f.removeCalls = append(f.removeCalls, sandboxGlob)
	return nil
}

func newEngine(t *testing.T, transport *fakeTransport) *execution.Engine {
	t.Helper()
	gw := sandbox.NewGateway(transport, sandbox.Config{})
	return execution.New(gw, execution.Config{HostWorkRoot: t.TempDir()})
}

func TestEngine_Ok(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 0, Stdout: "3\n"},
	}}
	engine := newEngine(t, transport)

	result, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "print(1+2)", Language: domain.LanguagePython,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict != domain.VerdictOk {
		t.Fatalf("Verdict = %v, want Ok", result.Verdict)
	}
	if result.Stdout != "3\n" {
		t.Fatalf("Stdout = %q, want %q", result.Stdout, "3\n")
	}
	if len(transport.removeCalls) != 1 {
		t.Fatalf("expected cleanup to run exactly once, got %d calls", len(transport.removeCalls))
	}
}

func TestEngine_CompileError(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 1, Stderr: "main.cpp:1:1: error: expected ';'"},
	}}
	engine := newEngine(t, transport)

	result, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "int main(){ return", Language: domain.LanguageCPP,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict != domain.VerdictCompileError {
		t.Fatalf("Verdict = %v, want CompileError", result.Verdict)
	}
	if !strings.Contains(result.Stderr, "error:") {
		t.Fatalf("Stderr = %q, want it to contain 'error:'", result.Stderr)
	}
	if len(transport.execCalls) != 1 {
		t.Fatalf("expected the run step to be skipped after a compile error, got %d exec calls", len(transport.execCalls))
	}
}

func TestEngine_TimeLimitExceeded(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 137, Signalled: true},
	}}
	engine := newEngine(t, transport)

	result, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "while True: pass", Language: domain.LanguagePython,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict != domain.VerdictTimeLimitExceeded {
		t.Fatalf("Verdict = %v, want TimeLimitExceeded", result.Verdict)
	}
}

func TestEngine_RuntimeError(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 1, Stderr: ""},
	}}
	engine := newEngine(t, transport)

	result, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "exit(1)", Language: domain.LanguagePython,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict != domain.VerdictRuntimeError {
		t.Fatalf("Verdict = %v, want RuntimeError", result.Verdict)
	}
	if result.Stderr != "Program exited with code 1" {
		t.Fatalf("Stderr = %q, want synthetic message", result.Stderr)
	}
}

func TestEngine_StderrPreservedOnOk(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 0}, // compile step
		{ExitCode: 0, Stdout: "", Stderr: "warning: deprecated"},
	}}
	engine := newEngine(t, transport)

	result, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "...", Language: domain.LanguageCPP,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict != domain.VerdictOk {
		t.Fatalf("Verdict = %v, want Ok", result.Verdict)
	}
	if result.Stderr != "warning: deprecated" {
		t.Fatalf("Stderr = %q, want preserved", result.Stderr)
	}
}

func TestEngine_UnknownLanguageIsBadRequest(t *testing.T) {
	transport := &fakeTransport{}
	engine := newEngine(t, transport)

	_, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "x", Language: domain.Language("brainfuck"),
	})
	if err == nil {
		t.Fatal("expected an error for an unsupported language")
	}
}

func TestEngine_CleanupRunsEvenOnCompileError(t *testing.T) {
	transport := &fakeTransport{execResults: []sandbox.ExecResult{
		{ExitCode: 1, Stderr: "error: bad"},
	}}
	engine := newEngine(t, transport)

	if _, err := engine.Run(context.Background(), "sub-1", domain.Submission{
		Code: "bad", Language: domain.LanguageCPP,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(transport.removeCalls) != 1 {
		t.Fatalf("expected cleanup on the compile-error path, got %d calls", len(transport.removeCalls))
	}
}
