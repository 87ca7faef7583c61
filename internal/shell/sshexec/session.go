package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/redact"
)

// =============================================================================
// Command and Result
// =============================================================================

// Command is one remote invocation together with its failure policy.
// Tolerant makes the best-effort-vs-fatal decision visible at the call
// site; the executor itself treats every exit code as data.
type Command struct {
	Line     string
	Elevated bool          // run under sudo with the session credential
	Tolerant bool          // caller accepts a non-zero exit
	Timeout  time.Duration // overrides the session default when non-zero
}

// Result is the remote outcome. A non-zero exit code is data, not an
// error; the error return of Run is reserved for transport and
// escalation failures.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports a zero exit.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Combined merges both streams for diagnostics.
func (r Result) Combined() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// =============================================================================
// Session
// =============================================================================

// Session is one live SSH connection, exclusively owned by a single
// deployment invocation. Commands run one at a time over fresh transport
// channels; Close is idempotent and must be reached on every path.
type Session struct {
	client  *ssh.Client
	target  domain.ConnectionConfig
	scrub   *redact.Scrubber
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex // protects closed
	closed bool
}

func newSession(client *ssh.Client, target domain.ConnectionConfig, timeout time.Duration, logger *slog.Logger) *Session {
	// The scrubber shares the capsule's backing array, so zeroizing the
	// capsule also disarms the scrub pattern.
	scrub := redact.NewScrubber()
	if material, err := target.Secret.Bytes(); err == nil {
		scrub.Add(material)
	}

	return &Session{
		client:  client,
		target:  target,
		scrub:   scrub,
		timeout: timeout,
		logger:  logger,
	}
}

// Target returns the connection parameters this session was opened with.
func (s *Session) Target() domain.ConnectionConfig {
	return s.target
}

// User returns the remote user name.
func (s *Session) User() string {
	return s.target.User
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears down the connection. Safe to call more than once; only the
// first call reaches the transport.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.client.Close()
	s.logger.Debug("session closed", "addr", s.target.Address())
	return err
}

// =============================================================================
// Command Execution
// =============================================================================

// Run executes one command on the target. Elevated commands are composed
// as a single `sudo -S -p '' sh -c '<line>'` invocation with the secret
// written to stdin, so escalation covers entire pipelines and the secret
// never appears on a command line.
func (s *Session) Run(ctx context.Context, cmd Command) (Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Result{}, NewConnError("run", s.target.Address(), "session is closed", ErrSessionClosed)
	}
	sess, err := s.client.NewSession()
	s.mu.Unlock()
	if err != nil {
		return Result{}, NewConnError("run", s.target.Address(), "create session: "+err.Error(), err)
	}
	defer sess.Close()

	line := cmd.Line
	var stdin []byte
	if cmd.Elevated {
		material, err := s.target.Secret.Bytes()
		if err != nil {
			return Result{}, NewConnError("run", s.target.Address(), "credential already cleared", ErrEscalationDenied)
		}
		line = "sudo -S -p '' sh -c " + singleQuote(cmd.Line)
		stdin = make([]byte, len(material)+1)
		copy(stdin, material)
		stdin[len(material)] = '\n'
		defer zeroBytes(stdin)
	}

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if stdin != nil {
		sess.Stdin = bytes.NewReader(stdin)
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	s.logger.Debug("running remote command",
		"line", s.scrub.Scrub(cmd.Line), "elevated", cmd.Elevated, "tolerant", cmd.Tolerant)

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(line)
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		return Result{}, NewConnError("run", s.target.Address(), "canceled: "+ctx.Err().Error(), ctx.Err())
	case <-time.After(timeout):
		sess.Close()
		return Result{}, NewConnError("run", s.target.Address(), fmt.Sprintf("command timed out after %v", timeout), ErrCommandTimeout)
	case runErr := <-done:
		exitCode := 0
		if runErr != nil {
			var exitErr *ssh.ExitError
			if !errors.As(runErr, &exitErr) {
				// No exit status reached us: transport failure.
				return Result{}, NewConnError("run", s.target.Address(), runErr.Error(), runErr)
			}
			exitCode = exitErr.ExitStatus()
		}
		return s.reduce(cmd, stdout.String(), stderr.String(), exitCode)
	}
}

// reduce turns the raw run outcome into a Result, scrubbing credential
// material and escalation chatter out of both streams.
func (s *Session) reduce(cmd Command, stdout, stderr string, exitCode int) (Result, error) {
	res := Result{
		Stdout:   s.scrub.Scrub(stdout),
		Stderr:   s.scrub.Scrub(stderr),
		ExitCode: exitCode,
	}
	if cmd.Elevated {
		res.Stdout = redact.StripSudoNoise(res.Stdout)
		res.Stderr = redact.StripSudoNoise(res.Stderr)
	}

	if cmd.Elevated && res.ExitCode != 0 && redact.IsEscalationDenied(res.Combined()) {
		return res, NewConnError("run", s.target.Address(), "sudo rejected the credential", ErrEscalationDenied)
	}
	return res, nil
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
