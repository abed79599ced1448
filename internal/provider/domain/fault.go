package domain

import (
	"errors"
	"strings"
)

// Funding-instrument declines the shopper can recover from by picking a new
// funding source on the provider's hosted page.
var retryableDeclineCodes = map[string]struct{}{
	"10486": {},
	"10422": {},
}

// Codes the provider returns when the checkout session behind a token is
// gone or no longer valid.
var missingSessionCodes = map[string]struct{}{
	"10408": {},
	"10410": {},
}

// Fault is a provider-reported API error with its full error-code set.
type Fault struct {
	Codes   []string
	Message string
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return f.Message
	}
	return "provider fault " + strings.Join(f.Codes, ",")
}

// IsRetryableDecline reports whether any code is in the fixed retryable set.
func (f *Fault) IsRetryableDecline() bool {
	for _, code := range f.Codes {
		if _, ok := retryableDeclineCodes[code]; ok {
			return true
		}
	}
	return false
}

// IsMissingSession reports whether the fault means the checkout session no
// longer exists on the provider side.
func (f *Fault) IsMissingSession() bool {
	for _, code := range f.Codes {
		if _, ok := missingSessionCodes[code]; ok {
			return true
		}
	}
	return false
}

// AsFault unwraps err into a *Fault when it is one.
func AsFault(err error) (*Fault, bool) {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault, true
	}
	return nil, false
}
