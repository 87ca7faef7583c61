// Package sshexec owns the SSH session of one deployment: dialing with a
// bounded timeout, running commands (plain and privilege-escalated), and
// guaranteed close.
package sshexec

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures the dialer and the sessions it produces.
type Config struct {
	ConnectTimeout time.Duration // Default: 30 seconds
	CommandTimeout time.Duration // Default per-command ceiling: 5 minutes
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		CommandTimeout: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 5 * time.Minute
	}
	return c
}

// =============================================================================
// Dialer
// =============================================================================

// Dialer opens one Session per deployment invocation.
type Dialer struct {
	config Config
	logger *slog.Logger
}

// NewDialer creates a dialer. A nil logger falls back to slog.Default.
func NewDialer(config Config, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{
		config: config.withDefaults(),
		logger: logger.With("component", "sshexec"),
	}
}

// Dial connects to the target and returns a live session. The caller owns
// the session and must Close it on every path.
func (d *Dialer) Dial(ctx context.Context, target domain.ConnectionConfig) (*Session, error) {
	if err := target.Validate(); err != nil {
		return nil, NewConnError("dial", target.Host, err.Error(), err)
	}

	auth, err := authMethod(target.Secret)
	if err != nil {
		return nil, NewConnError("dial", target.Address(), "unusable credential: "+err.Error(), ErrAuthRejected)
	}

	sshConfig := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // targets are user-supplied, no known_hosts store
		Timeout:         d.config.ConnectTimeout,
	}

	addr := target.Address()
	d.logger.Debug("dialing target", "addr", addr, "user", target.User)

	dialCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeout)
	defer cancel()

	netConn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	conn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshConfig)
	if err != nil {
		netConn.Close()
		return nil, classifyDialError(addr, err)
	}

	client := ssh.NewClient(conn, chans, reqs)
	d.logger.Info("connected", "addr", addr, "user", target.User)

	return newSession(client, target, d.config.CommandTimeout, d.logger), nil
}

// authMethod builds the SSH auth method from the credential capsule.
func authMethod(secret *domain.Secret) (ssh.AuthMethod, error) {
	material, err := secret.Bytes()
	if err != nil {
		return nil, err
	}

	switch secret.Kind() {
	case domain.AuthPrivateKey:
		signer, err := ssh.ParsePrivateKey(material)
		if err != nil {
			return nil, err
		}
		return ssh.PublicKeys(signer), nil
	case domain.AuthPassword:
		return ssh.Password(string(material)), nil
	default:
		return nil, domain.ErrAuthKindUnknown
	}
}

// classifyDialError reduces a dial failure to one of the connect
// sentinels so the orchestrator can report a cause, not just "failed".
func classifyDialError(addr string, err error) *ConnError {
	msg := err.Error()

	var netErr net.Error
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"):
		return NewConnError("dial", addr, "authentication rejected", ErrAuthRejected)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(msg, "i/o timeout"):
		return NewConnError("dial", addr, "connect timed out", ErrConnectTimeout)
	case strings.Contains(msg, "connection refused"):
		return NewConnError("dial", addr, "connection refused", ErrConnectionRefused)
	case strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"):
		return NewConnError("dial", addr, msg, ErrHostUnreachable)
	default:
		return NewConnError("dial", addr, msg, err)
	}
}
