package credential

import (
	"github.com/smallbiznis/payflow/internal/config"
	"github.com/smallbiznis/payflow/internal/credential/domain"
)

// Resolver selects the active credential set from the gateway settings.
type Resolver struct {
	settings *config.SettingsHolder
}

func NewResolver(settings *config.SettingsHolder) *Resolver {
	return &Resolver{settings: settings}
}

// Active returns the credential set for the configured environment. The
// certificate variant wins when a certificate blob is on file.
func (r *Resolver) Active() (domain.Credential, error) {
	return r.ForEnvironment(r.settings.Current().Environment)
}

// ForEnvironment returns the credential set for the named environment.
func (r *Resolver) ForEnvironment(environment string) (domain.Credential, error) {
	settings := r.settings.Current()

	block := settings.Live
	if environment == config.EnvironmentSandbox {
		block = settings.Sandbox
	}

	cred := buildCredential(block)
	if cred.Username() == "" || cred.Password() == "" || !cred.HasSecondaryCredential() {
		return cred, domain.ErrMissingCredentials
	}
	return cred, nil
}

func buildCredential(block config.CredentialSettings) domain.Credential {
	if block.Certificate != "" {
		return domain.NewCertificate(block.Username, block.Password, block.Certificate, block.Subject)
	}
	return domain.NewSignature(block.Username, block.Password, block.Signature)
}
