package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Step Ordering Tests
// =============================================================================

func TestDeploymentStep_Order_IsStrictlyIncreasing(t *testing.T) {
	sequence := []DeploymentStep{
		StepConnecting,
		StepCheckingDocker,
		StepInstallingPrereq,
		StepCleaningUp,
		StepPullingImage,
		StepDeploying,
		StepVerifying,
		StepComplete,
	}

	for i := 1; i < len(sequence); i++ {
		assert.Greater(t, sequence[i].Order(), sequence[i-1].Order(),
			"%s must come after %s", sequence[i], sequence[i-1])
	}
}

func TestDeploymentStep_IsTerminal(t *testing.T) {
	assert.True(t, StepComplete.IsTerminal())
	assert.True(t, StepError.IsTerminal())
	assert.False(t, StepConnecting.IsTerminal())
	assert.False(t, StepVerifying.IsTerminal())
}

func TestValidateStepTransition_ForwardMoves(t *testing.T) {
	valid := []struct {
		from DeploymentStep
		to   DeploymentStep
	}{
		{StepConnecting, StepCheckingDocker},
		{StepCheckingDocker, StepInstallingPrereq},
		{StepInstallingPrereq, StepCleaningUp},
		// Install step is optional and may be skipped entirely.
		{StepCheckingDocker, StepCleaningUp},
		{StepCleaningUp, StepPullingImage},
		{StepPullingImage, StepDeploying},
		{StepDeploying, StepVerifying},
		{StepVerifying, StepComplete},
	}

	for _, tc := range valid {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.NoError(t, ValidateStepTransition(tc.from, tc.to))
		})
	}
}

func TestValidateStepTransition_ErrorFromAnyLiveStep(t *testing.T) {
	live := []DeploymentStep{
		StepConnecting, StepCheckingDocker, StepInstallingPrereq,
		StepCleaningUp, StepPullingImage, StepDeploying, StepVerifying,
	}
	for _, from := range live {
		t.Run(string(from), func(t *testing.T) {
			assert.NoError(t, ValidateStepTransition(from, StepError))
		})
	}
}

func TestValidateStepTransition_BackwardAndRepeatRejected(t *testing.T) {
	invalid := []struct {
		from DeploymentStep
		to   DeploymentStep
	}{
		{StepPullingImage, StepCleaningUp},
		{StepVerifying, StepConnecting},
		{StepDeploying, StepDeploying},
	}

	for _, tc := range invalid {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.ErrorIs(t, ValidateStepTransition(tc.from, tc.to), ErrStepNotForward)
		})
	}
}

func TestValidateStepTransition_TerminalIsFinal(t *testing.T) {
	assert.ErrorIs(t, ValidateStepTransition(StepComplete, StepError), ErrStepTerminal)
	assert.ErrorIs(t, ValidateStepTransition(StepError, StepConnecting), ErrStepTerminal)
}

func TestValidateStepTransition_UnknownStep(t *testing.T) {
	assert.ErrorIs(t, ValidateStepTransition(DeploymentStep("rebooting"), StepComplete), ErrStepUnknown)
}

// =============================================================================
// Error Taxonomy Tests
// =============================================================================

func TestErrorKind_IsValid(t *testing.T) {
	kinds := []ErrorKind{
		ErrKindConnection, ErrKindUnsupportedHardware, ErrKindDockerMissing,
		ErrKindInstallation, ErrKindAcceleratorSetup, ErrKindImagePull,
		ErrKindContainerStart, ErrKindHealthCheck, ErrKindPrivilegeEscalation,
		ErrKindTimeout, ErrKindInternal,
	}
	for _, k := range kinds {
		assert.True(t, k.IsValid(), "kind %s", k)
	}
	assert.False(t, ErrorKind("oom").IsValid())
}

func TestErrorKind_HealthCheckIsNonFatal(t *testing.T) {
	assert.False(t, ErrKindHealthCheck.Fatal())

	for _, k := range []ErrorKind{
		ErrKindConnection, ErrKindUnsupportedHardware, ErrKindDockerMissing,
		ErrKindInstallation, ErrKindAcceleratorSetup, ErrKindImagePull,
		ErrKindContainerStart, ErrKindPrivilegeEscalation, ErrKindTimeout,
	} {
		assert.True(t, k.Fatal(), "kind %s must be fatal", k)
	}
}

func TestErrorDetail_String(t *testing.T) {
	detail := ErrorDetail{Kind: ErrKindImagePull, Step: StepPullingImage, Message: "registry unreachable"}
	s := detail.String()
	assert.Contains(t, s, "image_pull")
	assert.Contains(t, s, "pulling-image")
	assert.Contains(t, s, "registry unreachable")
}

// =============================================================================
// Deploy Request Tests
// =============================================================================

func TestDeployRequest_Validate(t *testing.T) {
	secret, err := NewSecret(AuthPassword, []byte("pw"))
	require.NoError(t, err)
	target := ConnectionConfig{Host: "10.0.0.1", Port: 22, User: "clara", Secret: secret}

	req := DeployRequest{Service: "clara-core", Target: target}
	assert.NoError(t, req.Validate())

	req = DeployRequest{Target: target}
	assert.ErrorIs(t, req.Validate(), ErrServiceRequired)

	req = DeployRequest{Service: "clara-core", Target: target, Port: 99999}
	assert.ErrorIs(t, req.Validate(), ErrPortInvalid)
}

// =============================================================================
// ID Generation Tests
// =============================================================================

func TestGenerateDeploymentID(t *testing.T) {
	id := GenerateDeploymentID()
	assert.True(t, strings.HasPrefix(id, "dep_"))
	assert.Len(t, id, len("dep_")+8)
	assert.NotEqual(t, id, GenerateDeploymentID())
}
