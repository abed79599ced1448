package domain

import "strings"

// Credential is one environment's API credential set, immutable once loaded.
// Variants carry either an API signature or an API certificate as the
// secondary credential next to the username/password pair.
type Credential interface {
	Username() string
	Password() string
	// HasSecondaryCredential reports whether the signature or certificate
	// is present, whichever the variant carries.
	HasSecondaryCredential() bool
}

// Signature is the signature-based credential variant.
type Signature struct {
	username  string
	password  string
	signature string
}

func NewSignature(username, password, signature string) Signature {
	return Signature{
		username:  strings.TrimSpace(username),
		password:  strings.TrimSpace(password),
		signature: strings.TrimSpace(signature),
	}
}

func (c Signature) Username() string             { return c.username }
func (c Signature) Password() string             { return c.password }
func (c Signature) Signature() string            { return c.signature }
func (c Signature) HasSecondaryCredential() bool { return c.signature != "" }

// Certificate is the certificate-based credential variant. The certificate
// is a PEM blob; Subject is the API subject sent alongside it.
type Certificate struct {
	username    string
	password    string
	certificate string
	subject     string
}

func NewCertificate(username, password, certificate, subject string) Certificate {
	return Certificate{
		username:    strings.TrimSpace(username),
		password:    strings.TrimSpace(password),
		certificate: strings.TrimSpace(certificate),
		subject:     strings.TrimSpace(subject),
	}
}

func (c Certificate) Username() string             { return c.username }
func (c Certificate) Password() string             { return c.password }
func (c Certificate) Certificate() string          { return c.certificate }
func (c Certificate) Subject() string              { return c.subject }
func (c Certificate) HasSecondaryCredential() bool { return c.certificate != "" }
