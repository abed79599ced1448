package credential_test

import (
	"testing"

	"github.com/smallbiznis/payflow/internal/config"
	"github.com/smallbiznis/payflow/internal/credential"
	"github.com/smallbiznis/payflow/internal/credential/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsWithCreds() config.Settings {
	s := config.DefaultSettings()
	s.Live = config.CredentialSettings{
		Username:  "live_api1.example.com",
		Password:  "live-secret",
		Signature: "LIVESIG",
	}
	s.Sandbox = config.CredentialSettings{
		Username:  "sandbox_api1.example.com",
		Password:  "sandbox-secret",
		Signature: "SANDSIG",
	}
	return s
}

func TestActiveFollowsConfiguredEnvironment(t *testing.T) {
	settings := settingsWithCreds()
	settings.Environment = config.EnvironmentSandbox
	resolver := credential.NewResolver(config.NewStaticSettingsHolder(settings))

	cred, err := resolver.Active()
	require.NoError(t, err)
	assert.Equal(t, "sandbox_api1.example.com", cred.Username())

	settings.Environment = config.EnvironmentLive
	resolver = credential.NewResolver(config.NewStaticSettingsHolder(settings))

	cred, err = resolver.Active()
	require.NoError(t, err)
	assert.Equal(t, "live_api1.example.com", cred.Username())
}

func TestCertificateVariantWinsWhenPresent(t *testing.T) {
	settings := settingsWithCreds()
	settings.Sandbox.Certificate = "PEM BLOB"
	settings.Sandbox.Subject = "third-party@example.com"
	resolver := credential.NewResolver(config.NewStaticSettingsHolder(settings))

	cred, err := resolver.ForEnvironment(config.EnvironmentSandbox)
	require.NoError(t, err)

	cert, ok := cred.(domain.Certificate)
	require.True(t, ok)
	assert.Equal(t, "PEM BLOB", cert.Certificate())
	assert.Equal(t, "third-party@example.com", cert.Subject())
}

func TestForEnvironmentIncompleteSet(t *testing.T) {
	settings := settingsWithCreds()
	settings.Sandbox.Password = ""
	resolver := credential.NewResolver(config.NewStaticSettingsHolder(settings))

	cred, err := resolver.ForEnvironment(config.EnvironmentSandbox)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	// The partial set still comes back so validation can enumerate what is
	// missing.
	assert.Equal(t, "sandbox_api1.example.com", cred.Username())
}
