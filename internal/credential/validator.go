package credential

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/smallbiznis/payflow/internal/credential/domain"
	"go.uber.org/zap"
)

// Issue severity: errors block saving credentials, warnings are advisory.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

type Issue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Tester performs the optional live round-trip against the provider.
// It returns the merchant's payer reference, or empty when the provider
// rejected the credentials.
type Tester interface {
	TestCredentials(ctx context.Context, cred domain.Credential) (string, error)
}

// Validator checks a credential set before it is put into service.
type Validator struct {
	log    *zap.Logger
	tester Tester
	now    func() time.Time
}

func NewValidator(log *zap.Logger, tester Tester) *Validator {
	return &Validator{
		log:    log.Named("credential.validator"),
		tester: tester,
		now:    time.Now,
	}
}

// Validate returns every issue found with the credential set. Static checks
// run first; the live round-trip only runs when all fields are present.
// Network faults during the live check are warnings, a provider-confirmed
// rejection is a hard error.
func (v *Validator) Validate(ctx context.Context, cred domain.Credential) []Issue {
	var issues []Issue

	hasUsername := cred.Username() != ""
	hasPassword := cred.Password() != ""
	hasSecondary := cred.HasSecondaryCredential()

	if !hasUsername {
		issues = append(issues, Issue{SeverityError, "username_required", "API username is required"})
	}
	if !hasPassword {
		issues = append(issues, Issue{SeverityError, "password_required", "API password is required"})
	}
	if !hasSecondary {
		issues = append(issues, Issue{SeverityError, "secondary_credential_required", "API signature or certificate is required"})
	}

	if cert, ok := cred.(domain.Certificate); ok && hasSecondary {
		issues = append(issues, v.validateCertificate(cert)...)
	}

	if !hasUsername || !hasPassword || !hasSecondary {
		return issues
	}

	if v.tester == nil {
		return issues
	}

	payerID, err := v.tester.TestCredentials(ctx, cred)
	if err != nil {
		v.log.Warn("live credential check failed", zap.Error(err))
		issues = append(issues, Issue{SeverityWarning, "live_check_unavailable", "unable to verify credentials against the provider"})
		return issues
	}
	if payerID == "" {
		issues = append(issues, Issue{SeverityError, "credentials_rejected", "the provider rejected the API credentials"})
	}

	return issues
}

func (v *Validator) validateCertificate(cred domain.Certificate) []Issue {
	block, _ := pem.Decode([]byte(cred.Certificate()))
	if block == nil {
		return []Issue{{SeverityError, "certificate_invalid", "the API certificate is not valid"}}
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return []Issue{{SeverityError, "certificate_invalid", "the API certificate is not valid"}}
	}

	var issues []Issue
	if cert.NotAfter.Before(v.now()) {
		issues = append(issues, Issue{SeverityError, "certificate_expired", "the API certificate has expired"})
	}
	if cert.Subject.CommonName != cred.Username() {
		issues = append(issues, Issue{SeverityError, "certificate_subject_mismatch", "the API username does not match the name in the API certificate"})
	}
	return issues
}

// HasErrors reports whether any issue is a hard error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
