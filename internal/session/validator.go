// Package session decides whether the stored credentials still describe a
// usable session.
package session

import (
	"time"

	"stockdesk/gateway/internal/store"
)

// Reason tags one way a session can fail validation.
type Reason string

const (
	ReasonNoToken             Reason = "no_token"
	ReasonSessionExpired      Reason = "session_expired"
	ReasonFingerprintMismatch Reason = "fingerprint_mismatch"
)

// Hard reports whether this reason alone forces a clean logout. Fingerprint
// mismatches are soft: browser and OS updates produce them legitimately, so
// they re-baseline instead.
func (r Reason) Hard() bool {
	return r == ReasonNoToken || r == ReasonSessionExpired
}

// Result is the structured outcome of a validation pass. Valid is true
// exactly when Errors is empty.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []Reason `json:"errors"`
}

// HardFailure reports whether any accumulated reason forces a logout.
func (r Result) HardFailure() bool {
	for _, reason := range r.Errors {
		if reason.Hard() {
			return true
		}
	}
	return false
}

// Has reports whether the result contains the given reason.
func (r Result) Has(reason Reason) bool {
	for _, got := range r.Errors {
		if got == reason {
			return true
		}
	}
	return false
}

type Validator struct {
	now func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate checks the credentials against the freshly computed fingerprint.
// Every applicable failure reason is reported; callers must not assume at
// most one. A missing token short-circuits, since nothing else is meaningful
// without one.
func (v *Validator) Validate(creds store.Credentials, currentFingerprint string) Result {
	if creds.AccessToken == "" || creds.SessionID == "" {
		return Result{Errors: []Reason{ReasonNoToken}}
	}

	var reasons []Reason

	expiry := creds.ExpiresAt
	if expiry.IsZero() {
		if exp, ok := TokenExpiry(creds.AccessToken); ok {
			expiry = exp
		}
	}
	if !expiry.IsZero() && !expiry.After(v.now()) {
		reasons = append(reasons, ReasonSessionExpired)
	}

	if creds.Fingerprint != "" && currentFingerprint != "" && creds.Fingerprint != currentFingerprint {
		reasons = append(reasons, ReasonFingerprintMismatch)
	}

	return Result{Valid: len(reasons) == 0, Errors: reasons}
}
