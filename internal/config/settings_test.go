package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	assert.NoError(t, validateSettings(DefaultSettings()))
}

func TestValidateSettingsRejectsUnknownValues(t *testing.T) {
	s := DefaultSettings()
	s.Environment = "staging"
	assert.Error(t, validateSettings(s))

	s = DefaultSettings()
	s.PaymentAction = "capture"
	assert.Error(t, validateSettings(s))

	s = DefaultSettings()
	s.SubtotalMismatchBehavior = "ignore"
	assert.Error(t, validateSettings(s))

	s = DefaultSettings()
	s.SessionTTLMinutes = 0
	assert.Error(t, validateSettings(s))
}

func TestNewSettingsHolderLoadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := "gateway:\n  environment: live\n  paymentAction: authorization\n  sessionTtlMinutes: 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yml"), []byte(contents), 0o600))

	holder, err := NewSettingsHolder(Config{SettingsPath: dir}, zap.NewNop())
	require.NoError(t, err)

	s := holder.Current()
	assert.Equal(t, EnvironmentLive, s.Environment)
	assert.Equal(t, PaymentActionAuthorization, s.PaymentAction)
	assert.Equal(t, 30, s.SessionTTLMinutes)
}

func TestNewSettingsHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	contents := "gateway:\n  environment: staging\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yml"), []byte(contents), 0o600))

	_, err := NewSettingsHolder(Config{SettingsPath: dir}, zap.NewNop())
	assert.Error(t, err)
}

func TestSessionTTL(t *testing.T) {
	s := DefaultSettings()
	s.SessionTTLMinutes = 90
	assert.Equal(t, 90*time.Minute, s.SessionTTL())
}

func TestActiveCredentials(t *testing.T) {
	s := DefaultSettings()
	s.Live.Username = "live-user"
	s.Sandbox.Username = "sandbox-user"

	s.Environment = EnvironmentSandbox
	assert.Equal(t, "sandbox-user", s.ActiveCredentials().Username)
	assert.True(t, s.IsSandbox())

	s.Environment = EnvironmentLive
	assert.Equal(t, "live-user", s.ActiveCredentials().Username)
	assert.False(t, s.IsSandbox())
}
