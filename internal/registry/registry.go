// Package registry exposes account-wide session control: every device's
// session for the current account, with remote termination.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/models"
	"stockdesk/gateway/internal/store"
)

// ErrCurrentSession is returned when a terminate call targets the session
// this gateway holds. Ending one's own live session through the "other
// sessions" list is a footgun; explicit logout is the intended path.
var ErrCurrentSession = errors.New("cannot terminate the current session; log out instead")

// SessionAPI is the slice of the remote client the registry needs.
type SessionAPI interface {
	ListSessions(ctx context.Context) ([]models.RemoteSession, error)
	TerminateSession(ctx context.Context, sessionID string) error
	TerminateOthers(ctx context.Context) error
}

type Registry struct {
	api   SessionAPI
	creds store.Store
	log   zerolog.Logger
}

func New(api SessionAPI, creds store.Store, log zerolog.Logger) *Registry {
	return &Registry{api: api, creds: creds, log: log}
}

// List returns all active sessions for the account, with the current flag
// reconciled against the locally held session id.
func (r *Registry) List(ctx context.Context) ([]models.RemoteSession, error) {
	sessions, err := r.api.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	currentID := r.currentSessionID(ctx)
	for i := range sessions {
		if currentID != "" {
			sessions[i].Current = sessions[i].SessionID == currentID
		}
	}
	return sessions, nil
}

// Terminate ends one session on another device. The session this gateway
// holds is refused client-side; the server enforces the same rule.
func (r *Registry) Terminate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id required")
	}
	if sessionID == r.currentSessionID(ctx) {
		return ErrCurrentSession
	}

	if err := r.api.TerminateSession(ctx, sessionID); err != nil {
		return err
	}
	r.log.Info().Str("session_id", sessionID).Msg("remote session terminated")
	return nil
}

// TerminateOthers ends every session except the current one.
func (r *Registry) TerminateOthers(ctx context.Context) error {
	if err := r.api.TerminateOthers(ctx); err != nil {
		return err
	}
	r.log.Info().Msg("all other sessions terminated")
	return nil
}

func (r *Registry) currentSessionID(ctx context.Context) string {
	creds, err := r.creds.Load(ctx)
	if err != nil {
		return ""
	}
	return creds.SessionID
}
