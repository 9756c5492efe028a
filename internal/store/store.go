// Package store persists this device's credentials so that state survives a
// full restart. All mutations are all-or-nothing: a concurrent reader never
// observes a token without its matching expiry or a session id without its
// fingerprint.
package store

import (
	"context"
	"errors"
	"time"

	"stockdesk/gateway/internal/models"
)

var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the single record a device holds: the current session's
// token pair plus the metadata needed to validate it later.
type Credentials struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id"`
	DeviceID     string       `json:"device_id"`
	Fingerprint  string       `json:"session_fingerprint"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

// Store is the credential store. Save and Clear replace or remove the whole
// record; UpdateFingerprint is the one sanctioned partial write, used when a
// soft mismatch is re-baselined.
type Store interface {
	Save(ctx context.Context, creds Credentials) error
	Load(ctx context.Context) (Credentials, error)
	Clear(ctx context.Context) error
	UpdateFingerprint(ctx context.Context, fingerprint string) error
}
