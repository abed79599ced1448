package credential_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/smallbiznis/payflow/internal/credential"
	"github.com/smallbiznis/payflow/internal/credential/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTester struct {
	payerID string
	err     error
	calls   int
}

func (f *fakeTester) TestCredentials(ctx context.Context, cred domain.Credential) (string, error) {
	f.calls++
	return f.payerID, f.err
}

func selfSignedCert(t *testing.T, commonName string, notAfter time.Time) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func issueCodes(issues []credential.Issue) []string {
	codes := make([]string, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	tester := &fakeTester{}
	validator := credential.NewValidator(zap.NewNop(), tester)

	issues := validator.Validate(context.Background(), domain.NewSignature("", "", ""))

	assert.ElementsMatch(t, []string{
		"username_required",
		"password_required",
		"secondary_credential_required",
	}, issueCodes(issues))
	assert.True(t, credential.HasErrors(issues))
	// Incomplete sets never hit the provider.
	assert.Equal(t, 0, tester.calls)
}

func TestValidateAcceptsCompleteSignatureSet(t *testing.T) {
	tester := &fakeTester{payerID: "PALLY123"}
	validator := credential.NewValidator(zap.NewNop(), tester)

	issues := validator.Validate(context.Background(), domain.NewSignature("merchant_api1.example.com", "secret", "SIG"))

	assert.Empty(t, issues)
	assert.Equal(t, 1, tester.calls)
}

func TestValidateRejectsProviderRejectedCredentials(t *testing.T) {
	tester := &fakeTester{payerID: ""}
	validator := credential.NewValidator(zap.NewNop(), tester)

	issues := validator.Validate(context.Background(), domain.NewSignature("merchant_api1.example.com", "secret", "SIG"))

	assert.Equal(t, []string{"credentials_rejected"}, issueCodes(issues))
	assert.True(t, credential.HasErrors(issues))
}

func TestValidateLiveCheckFailureIsWarning(t *testing.T) {
	tester := &fakeTester{err: errors.New("connection refused")}
	validator := credential.NewValidator(zap.NewNop(), tester)

	issues := validator.Validate(context.Background(), domain.NewSignature("merchant_api1.example.com", "secret", "SIG"))

	require.Len(t, issues, 1)
	assert.Equal(t, "live_check_unavailable", issues[0].Code)
	assert.Equal(t, credential.SeverityWarning, issues[0].Severity)
	assert.False(t, credential.HasErrors(issues))
}

func TestValidateCertificateSet(t *testing.T) {
	tester := &fakeTester{payerID: "PALLY123"}
	validator := credential.NewValidator(zap.NewNop(), tester)

	pemCert := selfSignedCert(t, "merchant_api1.example.com", time.Now().Add(24*time.Hour))
	cred := domain.NewCertificate("merchant_api1.example.com", "secret", pemCert, "")

	issues := validator.Validate(context.Background(), cred)
	assert.Empty(t, issues)
}

func TestValidateCertificateExpired(t *testing.T) {
	validator := credential.NewValidator(zap.NewNop(), nil)

	pemCert := selfSignedCert(t, "merchant_api1.example.com", time.Now().Add(-time.Minute))
	cred := domain.NewCertificate("merchant_api1.example.com", "secret", pemCert, "")

	issues := validator.Validate(context.Background(), cred)
	assert.Contains(t, issueCodes(issues), "certificate_expired")
}

func TestValidateCertificateSubjectMismatch(t *testing.T) {
	validator := credential.NewValidator(zap.NewNop(), nil)

	pemCert := selfSignedCert(t, "someone-else.example.com", time.Now().Add(24*time.Hour))
	cred := domain.NewCertificate("merchant_api1.example.com", "secret", pemCert, "")

	issues := validator.Validate(context.Background(), cred)
	assert.Contains(t, issueCodes(issues), "certificate_subject_mismatch")
}

func TestValidateCertificateGarbage(t *testing.T) {
	validator := credential.NewValidator(zap.NewNop(), nil)

	cred := domain.NewCertificate("merchant_api1.example.com", "secret", "not a pem blob", "")

	issues := validator.Validate(context.Background(), cred)
	assert.Contains(t, issueCodes(issues), "certificate_invalid")
}

func TestValidateWithoutTesterSkipsLiveCheck(t *testing.T) {
	validator := credential.NewValidator(zap.NewNop(), nil)

	issues := validator.Validate(context.Background(), domain.NewSignature("merchant_api1.example.com", "secret", "SIG"))
	assert.Empty(t, issues)
}
