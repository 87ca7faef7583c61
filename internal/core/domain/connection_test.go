package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Secret Capsule Tests
// =============================================================================

func TestNewSecret_CopiesMaterial(t *testing.T) {
	material := []byte("hunter2")
	secret, err := NewSecret(AuthPassword, material)
	require.NoError(t, err)

	// Mutating the caller's slice must not reach the capsule.
	material[0] = 'X'

	got, err := secret.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), got)
}

func TestNewSecret_EmptyMaterial(t *testing.T) {
	_, err := NewSecret(AuthPassword, nil)
	assert.ErrorIs(t, err, ErrSecretRequired)
}

func TestNewSecret_UnknownKind(t *testing.T) {
	_, err := NewSecret(AuthKind("totp"), []byte("x"))
	assert.ErrorIs(t, err, ErrAuthKindUnknown)
}

func TestSecret_Clear_Zeroizes(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("hunter2"))
	require.NoError(t, err)

	raw, err := secret.Bytes()
	require.NoError(t, err)

	secret.Clear()

	assert.True(t, secret.Cleared())
	for i, b := range raw {
		assert.Zero(t, b, "byte %d not zeroized", i)
	}

	_, err = secret.Bytes()
	assert.ErrorIs(t, err, ErrSecretCleared)
}

func TestSecret_Clear_Idempotent(t *testing.T) {
	secret, err := NewSecret(AuthPrivateKey, []byte("-----BEGIN KEY-----"))
	require.NoError(t, err)

	secret.Clear()
	secret.Clear()

	assert.True(t, secret.Cleared())
}

func TestSecret_NeverLeaksThroughFormatting(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("hunter2"))
	require.NoError(t, err)

	assert.NotContains(t, secret.String(), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%v", secret), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%+v", secret), "hunter2")

	data, err := json.Marshal(secret)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}

// =============================================================================
// Connection Config Tests
// =============================================================================

func TestConnectionConfig_Validate(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("pw"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  ConnectionConfig
		wantErr error
	}{
		{
			name:   "valid ip target",
			config: ConnectionConfig{Host: "192.168.1.50", Port: 22, User: "clara", Secret: secret},
		},
		{
			name:   "valid hostname target",
			config: ConnectionConfig{Host: "gpu-box.example.com", Port: 2222, User: "root", Secret: secret},
		},
		{
			name:    "missing host",
			config:  ConnectionConfig{Port: 22, User: "clara", Secret: secret},
			wantErr: ErrHostRequired,
		},
		{
			name:    "invalid host",
			config:  ConnectionConfig{Host: "not a host!", Port: 22, User: "clara", Secret: secret},
			wantErr: ErrHostInvalid,
		},
		{
			name:    "port too high",
			config:  ConnectionConfig{Host: "10.0.0.1", Port: 70000, User: "clara", Secret: secret},
			wantErr: ErrPortInvalid,
		},
		{
			name:    "port zero",
			config:  ConnectionConfig{Host: "10.0.0.1", Port: 0, User: "clara", Secret: secret},
			wantErr: ErrPortInvalid,
		},
		{
			name:    "missing user",
			config:  ConnectionConfig{Host: "10.0.0.1", Port: 22, Secret: secret},
			wantErr: ErrUserRequired,
		},
		{
			name:    "missing secret",
			config:  ConnectionConfig{Host: "10.0.0.1", Port: 22, User: "clara"},
			wantErr: ErrSecretRequired,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConnectionConfig_Validate_ClearedSecret(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("pw"))
	require.NoError(t, err)
	secret.Clear()

	config := ConnectionConfig{Host: "10.0.0.1", Port: 22, User: "clara", Secret: secret}
	assert.ErrorIs(t, config.Validate(), ErrSecretRequired)
}

func TestConnectionConfig_Address(t *testing.T) {
	config := ConnectionConfig{Host: "10.0.0.1", Port: 2222}
	assert.Equal(t, "10.0.0.1:2222", config.Address())
}

func TestConnectionConfig_Address_IPv6(t *testing.T) {
	config := ConnectionConfig{Host: "fe80::1", Port: 22}
	assert.Equal(t, "[fe80::1]:22", config.Address())
}

func TestConnectionConfig_SecretNotSerialized(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("hunter2"))
	require.NoError(t, err)

	config := ConnectionConfig{Host: "10.0.0.1", Port: 22, User: "clara", Secret: secret}
	data, err := json.Marshal(config)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "hunter2")
	assert.NotContains(t, string(data), "secret")
}
