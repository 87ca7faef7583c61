package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

func TestStaticCatalogs_AllProvidersPopulated(t *testing.T) {
	for _, p := range []domain.ProviderType{domain.ProviderAWS, domain.ProviderDigitalOcean, domain.ProviderHetzner} {
		assert.NotEmpty(t, StaticRegions(p), p)
		assert.NotEmpty(t, StaticSizes(p), p)
	}
	assert.Nil(t, StaticSizes(domain.ProviderType("linode")))
}

func TestSupportsGPU(t *testing.T) {
	assert.True(t, SupportsGPU(domain.ProviderAWS))
	assert.True(t, SupportsGPU(domain.ProviderDigitalOcean))
	assert.False(t, SupportsGPU(domain.ProviderHetzner))
}

func TestLookupSize(t *testing.T) {
	s := LookupSize(domain.ProviderAWS, "g4dn.xlarge")
	require.NotNil(t, s)
	assert.True(t, s.GPU)
	assert.Equal(t, "NVIDIA T4", s.GPUName)

	assert.Nil(t, LookupSize(domain.ProviderAWS, "m5.metal"))
}

func TestResolveSize_ExplicitSize(t *testing.T) {
	s, err := ResolveSize(domain.ProviderHetzner, "cx32", false)
	require.NoError(t, err)
	assert.Equal(t, "cx32", s.ID)
}

func TestResolveSize_ExplicitSizeMustMatchClass(t *testing.T) {
	_, err := ResolveSize(domain.ProviderAWS, "t3.medium", true)
	assert.ErrorIs(t, err, ErrSizeNotGPU)
}

func TestResolveSize_UnknownSize(t *testing.T) {
	_, err := ResolveSize(domain.ProviderAWS, "p5.48xlarge", true)
	assert.ErrorIs(t, err, ErrSizeUnknown)
}

func TestResolveSize_DefaultsToCheapestOfClass(t *testing.T) {
	s, err := ResolveSize(domain.ProviderAWS, "", true)
	require.NoError(t, err)
	assert.True(t, s.GPU)
	assert.Equal(t, "g4dn.xlarge", s.ID)

	s, err = ResolveSize(domain.ProviderDigitalOcean, "", false)
	require.NoError(t, err)
	assert.False(t, s.GPU)
	assert.Equal(t, "s-2vcpu-4gb", s.ID)
}

func TestResolveSize_GPUOnHetznerRejected(t *testing.T) {
	_, err := ResolveSize(domain.ProviderHetzner, "", true)
	assert.ErrorIs(t, err, ErrGPUNotOffered)
}

// =============================================================================
// Credential Tests
// =============================================================================

func TestCredentials_Validate(t *testing.T) {
	creds := Credentials{
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "secret",
		DOToken:            "dop_v1_example",
	}

	assert.NoError(t, creds.Validate(domain.ProviderAWS))
	assert.NoError(t, creds.Validate(domain.ProviderDigitalOcean))
	assert.ErrorIs(t, creds.Validate(domain.ProviderHetzner), ErrHetznerTokenRequired)
	assert.ErrorIs(t, creds.Validate(domain.ProviderType("linode")), ErrUnknownProvider)

	assert.ErrorIs(t, Credentials{AWSAccessKeyID: "AKIA"}.Validate(domain.ProviderAWS), ErrAWSSecretKeyRequired)
}

func TestCredentials_ConfiguredProviders(t *testing.T) {
	creds := Credentials{HetznerToken: "token"}
	assert.Equal(t, []domain.ProviderType{domain.ProviderHetzner}, creds.ConfiguredProviders())

	assert.Empty(t, Credentials{}.ConfiguredProviders())
}
