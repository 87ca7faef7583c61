// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"net"
	"regexp"
	"strconv"
)

// =============================================================================
// Connection Errors
// =============================================================================

var (
	// Connection target validation errors
	ErrHostRequired = errors.New("host is required")
	ErrHostInvalid  = errors.New("host must be a valid hostname or IP address")
	ErrPortInvalid  = errors.New("port must be between 1 and 65535")
	ErrUserRequired = errors.New("user is required")

	// Credential capsule errors
	ErrSecretRequired  = errors.New("credential secret is required")
	ErrSecretCleared   = errors.New("credential secret has been cleared")
	ErrAuthKindUnknown = errors.New("unknown authentication kind")
)

// =============================================================================
// Auth Kind
// =============================================================================

// AuthKind identifies how the secret material authenticates the user.
type AuthKind string

const (
	AuthPassword   AuthKind = "password"
	AuthPrivateKey AuthKind = "private-key"
)

// IsValid checks if the auth kind is one of the supported values.
func (k AuthKind) IsValid() bool {
	switch k {
	case AuthPassword, AuthPrivateKey:
		return true
	default:
		return false
	}
}

// =============================================================================
// Secret
// =============================================================================

// Secret is a single-use credential capsule. It holds password or PEM key
// material for exactly one deployment invocation and is zeroized via Clear
// on every exit path. It is owned by a single invocation and is not safe
// for concurrent use.
type Secret struct {
	kind     AuthKind
	material []byte
	cleared  bool
}

// NewSecret copies the given material into a fresh capsule.
func NewSecret(kind AuthKind, material []byte) (*Secret, error) {
	if !kind.IsValid() {
		return nil, ErrAuthKindUnknown
	}
	if len(material) == 0 {
		return nil, ErrSecretRequired
	}
	buf := make([]byte, len(material))
	copy(buf, material)
	return &Secret{kind: kind, material: buf}, nil
}

// Kind returns the authentication kind the material belongs to.
func (s *Secret) Kind() AuthKind {
	return s.kind
}

// Bytes returns the raw credential material.
// Fails with ErrSecretCleared once the capsule has been zeroized.
func (s *Secret) Bytes() ([]byte, error) {
	if s.cleared {
		return nil, ErrSecretCleared
	}
	return s.material, nil
}

// Clear zeroizes the material. Safe to call more than once.
func (s *Secret) Clear() {
	for i := range s.material {
		s.material[i] = 0
	}
	s.material = nil
	s.cleared = true
}

// Cleared reports whether the capsule has been zeroized.
func (s *Secret) Cleared() bool {
	return s.cleared
}

// String implements fmt.Stringer and always masks the material.
func (s *Secret) String() string {
	return "[redacted]"
}

// MarshalJSON masks the material so a Secret can never leak through
// serialized structs.
func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[redacted]"`), nil
}

// =============================================================================
// Connection Config
// =============================================================================

// DefaultSSHPort is used when a target does not specify a port.
const DefaultSSHPort = 22

// ConnectionConfig describes one remote deployment target.
// The Secret is never serialized.
type ConnectionConfig struct {
	Host   string  `json:"host"`
	Port   int     `json:"port"`
	User   string  `json:"user"`
	Secret *Secret `json:"-"`
}

// Address returns the dialable "host:port" form of the target.
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the target fields and the presence of a live secret.
func (c ConnectionConfig) Validate() error {
	if err := ValidateHost(c.Host); err != nil {
		return err
	}
	if err := ValidatePort(c.Port); err != nil {
		return err
	}
	if err := ValidateUser(c.User); err != nil {
		return err
	}
	if c.Secret == nil || c.Secret.Cleared() {
		return ErrSecretRequired
	}
	return nil
}

// =============================================================================
// Validation Functions
// =============================================================================

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateHost validates a target host (hostname or IP).
func ValidateHost(host string) error {
	if host == "" {
		return ErrHostRequired
	}

	if ip := net.ParseIP(host); ip != nil {
		return nil
	}

	if hostnameRegex.MatchString(host) {
		return nil
	}

	return ErrHostInvalid
}

// ValidatePort validates a TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return ErrPortInvalid
	}
	return nil
}

// ValidateUser validates a remote username.
func ValidateUser(user string) error {
	if user == "" {
		return ErrUserRequired
	}
	return nil
}
