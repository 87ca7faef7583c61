package verify

import (
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runningInspect = `[
  {
    "Id": "3f9a1c2b4d5e",
    "Name": "/clara_core",
    "State": {
      "Status": "running",
      "Running": true,
      "Paused": false,
      "Restarting": false,
      "OOMKilled": false,
      "Dead": false,
      "ExitCode": 0,
      "Error": "",
      "StartedAt": "2025-06-01T10:00:00.000000000Z",
      "FinishedAt": "0001-01-01T00:00:00Z"
    },
    "Config": {
      "Image": "claraverse/clara-core:latest"
    }
  }
]`

const exitedInspect = `[
  {
    "Id": "3f9a1c2b4d5e",
    "Name": "/clara_core",
    "State": {
      "Status": "exited",
      "Running": false,
      "OOMKilled": false,
      "ExitCode": 137,
      "Error": ""
    }
  }
]`

// =============================================================================
// ParseInspect Tests
// =============================================================================

func TestParseInspect_Running(t *testing.T) {
	resp, err := ParseInspect(runningInspect)
	require.NoError(t, err)

	v := Reduce(resp)
	assert.True(t, v.Running)
	assert.Equal(t, "running", v.Status)
	assert.Equal(t, "3f9a1c2b4d5e", v.ContainerID)
	assert.Equal(t, "running", v.Describe())
}

func TestParseInspect_EmptyOutput(t *testing.T) {
	for _, raw := range []string{"", "   \n", "[]"} {
		_, err := ParseInspect(raw)
		assert.ErrorIs(t, err, ErrNoContainer, "raw=%q", raw)
	}
}

func TestParseInspect_Garbage(t *testing.T) {
	_, err := ParseInspect("Error: No such object: clara_core")
	assert.ErrorIs(t, err, ErrBadInspectJSON)
}

// =============================================================================
// Verdict Tests
// =============================================================================

func TestReduce_Exited(t *testing.T) {
	resp, err := ParseInspect(exitedInspect)
	require.NoError(t, err)

	v := Reduce(resp)
	assert.False(t, v.Running)
	assert.Equal(t, 137, v.ExitCode)
	assert.Equal(t, "exited with code 137", v.Describe())
}

func TestReduce_OOMKilled(t *testing.T) {
	resp, err := ParseInspect(`[{"Id":"abc","State":{"Status":"exited","Running":false,"OOMKilled":true,"ExitCode":137}}]`)
	require.NoError(t, err)

	v := Reduce(resp)
	assert.True(t, v.OOMKilled)
	assert.Contains(t, v.Describe(), "out of memory")
}

func TestReduce_EngineError(t *testing.T) {
	resp, err := ParseInspect(`[{"Id":"abc","State":{"Status":"created","Running":false,"Error":"no such file or directory"}}]`)
	require.NoError(t, err)

	v := Reduce(resp)
	assert.Equal(t, "created: no such file or directory", v.Describe())
}

func TestReduce_UnhealthyWhileRunning(t *testing.T) {
	resp, err := ParseInspect(`[{"Id":"abc","State":{"Status":"running","Running":true,"Health":{"Status":"unhealthy"}}}]`)
	require.NoError(t, err)

	v := Reduce(resp)
	assert.True(t, v.Running)
	assert.Equal(t, "unhealthy", v.Health)
	assert.Contains(t, v.Describe(), "unhealthy")
}

func TestReduce_EmptyResponse(t *testing.T) {
	v := Reduce(container.InspectResponse{})
	assert.False(t, v.Running)
	assert.Equal(t, "unknown", v.Status)
	assert.Equal(t, "no state reported", Verdict{}.Describe())
}

// =============================================================================
// Log Truncation Tests
// =============================================================================

func TestTruncateLogs_ShortPassesThrough(t *testing.T) {
	assert.Equal(t, "boot ok", TruncateLogs("boot ok\n", 100))
}

func TestTruncateLogs_KeepsTail(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("line of noise\n")
	}
	b.WriteString("FATAL: model file missing")

	out := TruncateLogs(b.String(), 200)
	assert.LessOrEqual(t, len(out), 200+len("[earlier output truncated]\n"))
	assert.Contains(t, out, "FATAL: model file missing")
	assert.True(t, strings.HasPrefix(out, "[earlier output truncated]"))
}

func TestTruncateLogs_DefaultBound(t *testing.T) {
	long := strings.Repeat("x", DefaultLogExcerpt*2)
	out := TruncateLogs(long, 0)
	assert.LessOrEqual(t, len(out), DefaultLogExcerpt+len("[earlier output truncated]\n"))
}
