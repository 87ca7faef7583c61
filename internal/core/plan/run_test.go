package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

func coreService(t *testing.T) Service {
	t.Helper()
	svc, err := DefaultCatalog().Lookup("clara-core")
	require.NoError(t, err)
	return svc
}

// =============================================================================
// Flag Table Tests
// =============================================================================

func TestBuildRunCommand_FlagsByAccelerator(t *testing.T) {
	tests := []struct {
		kind        domain.AcceleratorKind
		wantFlags   []string
		absentFlags []string
	}{
		{
			kind:        domain.AcceleratorCPU,
			absentFlags: []string{"--gpus", "--device=/dev/kfd"},
		},
		{
			kind:        domain.AcceleratorCUDA,
			wantFlags:   []string{"--gpus all"},
			absentFlags: []string{"--device=/dev/kfd"},
		},
		{
			kind:        domain.AcceleratorROCm,
			wantFlags:   []string{"--device=/dev/kfd", "--device=/dev/dri", "--group-add video", "--group-add render"},
			absentFlags: []string{"--gpus"},
		},
		{
			kind:        domain.AcceleratorStrix,
			wantFlags:   []string{"--device=/dev/kfd", "--device=/dev/dri", "--group-add video"},
			absentFlags: []string{"--gpus"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			cmd, err := BuildRunCommand(RunSpec{Service: coreService(t), Kind: tt.kind})
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(cmd, "docker run -d "), cmd)
			assert.Contains(t, cmd, "--restart unless-stopped")
			assert.Contains(t, cmd, "--name clara_core")
			assert.Contains(t, cmd, "-p 8091:8091")
			assert.Contains(t, cmd, "-v clara_data:/app/data")
			for _, f := range tt.wantFlags {
				assert.Contains(t, cmd, f)
			}
			for _, f := range tt.absentFlags {
				assert.NotContains(t, cmd, f)
			}
			// The image reference is the final word.
			assert.True(t, strings.HasSuffix(cmd, coreService(t).ImageRef(tt.kind)), cmd)
		})
	}
}

func TestBuildRunArgs_RejectsUnsupportedKind(t *testing.T) {
	_, err := BuildRunArgs(RunSpec{Service: coreService(t), Kind: domain.AcceleratorUnsupportedARM})
	assert.ErrorIs(t, err, ErrNotDeployable)
}

// =============================================================================
// Port and Env Composition
// =============================================================================

func TestBuildRunCommand_PortOverride(t *testing.T) {
	cmd, err := BuildRunCommand(RunSpec{
		Service:  coreService(t),
		Kind:     domain.AcceleratorCPU,
		HostPort: 18091,
	})
	require.NoError(t, err)

	assert.Contains(t, cmd, "-p 18091:8091")
	assert.NotContains(t, cmd, "-p 8091:8091")
}

func TestBuildRunCommand_EnvSortedAndQuoted(t *testing.T) {
	cmd, err := BuildRunCommand(RunSpec{
		Service: coreService(t),
		Kind:    domain.AcceleratorCPU,
		Env: map[string]string{
			"ZED":        "last",
			"ALPHA":      "first",
			"WITH_SPACE": "two words",
		},
	})
	require.NoError(t, err)

	// Sorted keys keep the composed command deterministic.
	alpha := strings.Index(cmd, "ALPHA=first")
	space := strings.Index(cmd, "WITH_SPACE=")
	zed := strings.Index(cmd, "ZED=last")
	require.True(t, alpha >= 0 && space >= 0 && zed >= 0, cmd)
	assert.Less(t, alpha, space)
	assert.Less(t, space, zed)

	assert.Contains(t, cmd, "'WITH_SPACE=two words'")
}

func TestBuildRunArgs_ExtraPorts(t *testing.T) {
	args, err := BuildRunArgs(RunSpec{
		Service:    coreService(t),
		Kind:       domain.AcceleratorCPU,
		ExtraPorts: []string{"9099:9099", "5353:5353/udp"},
	})
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-p 9099:9099")
	assert.Contains(t, joined, "-p 5353:5353/udp")
}

func TestBuildRunArgs_RejectsBadExtraPort(t *testing.T) {
	_, err := BuildRunArgs(RunSpec{
		Service:    coreService(t),
		Kind:       domain.AcceleratorCPU,
		ExtraPorts: []string{"not-a-port"},
	})
	assert.ErrorIs(t, err, ErrBadPortSpec)
}

// =============================================================================
// Lifecycle Command Tests
// =============================================================================

func TestLifecycleCommands(t *testing.T) {
	svc := coreService(t)

	assert.Equal(t, "docker pull claraverse/clara-core:latest-cuda", PullCommand(svc, domain.AcceleratorCUDA))
	assert.Equal(t, "docker rm -f clara_core", CleanupCommand("clara_core"))
	assert.Equal(t, "docker stop clara_core", StopCommand("clara_core"))
	assert.Equal(t, "docker inspect clara_core", InspectCommand("clara_core"))
	assert.Equal(t, "docker logs --tail 50 clara_core", LogsCommand("clara_core", 0))
	assert.Equal(t, "docker logs --tail 200 clara_core", LogsCommand("clara_core", 200))
}

func TestHealthProbeCommand(t *testing.T) {
	svc := coreService(t)

	assert.Equal(t, "curl -fsS -m 5 http://127.0.0.1:8091/health", HealthProbeCommand(svc, 0))
	assert.Equal(t, "curl -fsS -m 5 http://127.0.0.1:18091/health", HealthProbeCommand(svc, 18091))

	svc.HealthPath = ""
	assert.Empty(t, HealthProbeCommand(svc, 0))
}

// =============================================================================
// Quoting Tests
// =============================================================================

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with space", "'with space'"},
		{"semi;colon", "'semi;colon'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
		{"8091:8091", "8091:8091"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, shellQuote(tt.in))
		})
	}
}
