// Package auth owns the process-wide authentication state: restoring it on
// start, establishing it at login, keeping it fresh, and tearing it down.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/activity"
	"stockdesk/gateway/internal/api"
	"stockdesk/gateway/internal/authz"
	"stockdesk/gateway/internal/clock"
	"stockdesk/gateway/internal/fingerprint"
	"stockdesk/gateway/internal/ids"
	"stockdesk/gateway/internal/log"
	"stockdesk/gateway/internal/models"
	"stockdesk/gateway/internal/refresh"
	"stockdesk/gateway/internal/session"
	"stockdesk/gateway/internal/store"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// AuthAPI is the slice of the remote client the orchestrator needs.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.RefreshResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

type Config struct {
	Refresh  refresh.Config
	Activity activity.Config
}

// Orchestrator composes the credential store, validator, refresh scheduler
// and activity monitor behind login/logout and the permission predicates.
// It is the single owner of the authenticated user record.
type Orchestrator struct {
	mu    sync.Mutex
	api   AuthAPI
	creds store.Store
	clk   clock.Clock
	log   zerolog.Logger

	validator     *session.Validator
	sched         *refresh.Scheduler
	monitor       *activity.Monitor
	fingerprintFn func() string

	user          *models.User
	authenticated bool
	epoch         uint64
}

func New(cfg Config, authAPI AuthAPI, creds store.Store, clk clock.Clock, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		api:           authAPI,
		creds:         creds,
		clk:           clk,
		log:           logger,
		validator:     session.NewValidator(clk.Now),
		fingerprintFn: fingerprint.Current,
	}

	o.sched = refresh.NewScheduler(cfg.Refresh, clk, log.For(logger, "refresh"), o.refreshOnce, func() {
		o.forceLogout("refresh attempts exhausted")
	})

	o.monitor = activity.NewMonitor(cfg.Activity, clk, log.For(logger, "activity"), o.idleLogout)

	return o
}

// Restore loads persisted credentials and validates them. Hard failures
// clear the store locally without any network call; a lone fingerprint
// mismatch re-baselines and stays authenticated.
func (o *Orchestrator) Restore(ctx context.Context) error {
	creds, err := o.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoCredentials) {
			o.setUnauthenticated()
			return nil
		}
		return fmt.Errorf("restore credentials: %w", err)
	}

	fp := o.fingerprintFn()
	res := o.validator.Validate(creds, fp)

	if res.HardFailure() {
		o.log.Info().Interface("reasons", res.Errors).Msg("stored session unusable, clearing")
		o.setUnauthenticated()
		if err := o.creds.Clear(ctx); err != nil {
			o.log.Error().Err(err).Msg("clear credentials failed")
		}
		return nil
	}

	if res.Has(session.ReasonFingerprintMismatch) {
		o.log.Warn().Msg("fingerprint mismatch, re-baselining")
		if err := o.creds.UpdateFingerprint(ctx, fp); err != nil {
			o.log.Error().Err(err).Msg("fingerprint re-baseline failed")
		}
	}

	user := creds.User
	if user == nil {
		user = &models.User{}
	}
	restored := *user
	restored.Authenticated = true

	o.mu.Lock()
	o.user = &restored
	o.authenticated = true
	o.epoch++
	o.mu.Unlock()

	o.arm(creds.AccessToken, creds.ExpiresAt)
	o.log.Info().Str("username", restored.Username).Msg("session restored")
	return nil
}

// Login exchanges credentials with the remote API. On failure no state is
// mutated and the server's message is surfaced to the caller.
func (o *Orchestrator) Login(ctx context.Context, username, password string) (*models.User, error) {
	deviceID := o.deviceID(ctx)
	hostname, _ := os.Hostname()

	resp, err := o.api.Login(ctx, api.LoginRequest{
		Username:   username,
		Password:   password,
		DeviceID:   deviceID,
		DeviceName: hostname,
	})
	if err != nil {
		return nil, err
	}

	user := resp.User
	user.Authenticated = true

	expiry := resp.ExpiresAt
	if expiry.IsZero() {
		if exp, ok := session.TokenExpiry(resp.AccessToken); ok {
			expiry = exp
		}
	}

	creds := store.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SessionID:    resp.SessionID,
		DeviceID:     deviceID,
		Fingerprint:  o.fingerprintFn(),
		ExpiresAt:    expiry,
		User:         &user,
	}
	if err := o.creds.Save(ctx, creds); err != nil {
		return nil, fmt.Errorf("persist credentials: %w", err)
	}

	o.mu.Lock()
	o.user = &user
	o.authenticated = true
	o.epoch++
	o.mu.Unlock()

	o.arm(resp.AccessToken, expiry)
	o.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("login succeeded")

	result := user
	return &result, nil
}

// Logout disarms the timers, clears local state, and then notifies the
// server best-effort. Local cleanup never depends on network success.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.mu.Lock()
	o.epoch++
	o.authenticated = false
	o.user = nil
	o.mu.Unlock()

	o.sched.Stop()
	o.monitor.Stop()

	sessionID := ""
	if creds, err := o.creds.Load(ctx); err == nil {
		sessionID = creds.SessionID
	}
	if err := o.creds.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	if sessionID != "" {
		if err := o.api.Logout(ctx, sessionID); err != nil {
			o.log.Warn().Err(err).Msg("remote logout failed, ignored")
		}
	}

	o.log.Info().Msg("logged out")
	return nil
}

// Revalidate re-runs the validator against the stored credentials, resolving
// hard failures to a forced logout and soft mismatches to a re-baseline.
func (o *Orchestrator) Revalidate(ctx context.Context) (session.Result, error) {
	creds, err := o.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoCredentials) {
			res := o.validator.Validate(store.Credentials{}, "")
			if o.IsAuthenticated() {
				o.forceLogout("credentials vanished")
			}
			return res, nil
		}
		return session.Result{}, err
	}

	fp := o.fingerprintFn()
	res := o.validator.Validate(creds, fp)

	if res.HardFailure() {
		o.forceLogout("session validation failed")
		return res, nil
	}
	if res.Has(session.ReasonFingerprintMismatch) {
		o.log.Warn().Msg("fingerprint mismatch, re-baselining")
		if err := o.creds.UpdateFingerprint(ctx, fp); err != nil {
			o.log.Error().Err(err).Msg("fingerprint re-baseline failed")
		}
	}
	return res, nil
}

// UpdateUserPermissions replaces the in-memory and persisted override list,
// leaving the session tokens untouched.
func (o *Orchestrator) UpdateUserPermissions(ctx context.Context, perms []string) error {
	o.mu.Lock()
	if !o.authenticated || o.user == nil {
		o.mu.Unlock()
		return ErrNotAuthenticated
	}
	updated := *o.user
	updated.Permissions = append([]string(nil), perms...)
	o.user = &updated
	o.mu.Unlock()

	creds, err := o.creds.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	creds.User = &updated
	if err := o.creds.Save(ctx, creds); err != nil {
		return fmt.Errorf("persist permissions: %w", err)
	}

	o.log.Info().Int("permissions", len(perms)).Msg("permission overrides updated")
	return nil
}

func (o *Orchestrator) IsAuthenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.authenticated
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (o *Orchestrator) CurrentUser() *models.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil {
		return nil
	}
	user := *o.user
	user.Permissions = append([]string(nil), o.user.Permissions...)
	return &user
}

func (o *Orchestrator) HasPermission(perm string) bool {
	return authz.HasPermission(o.CurrentUser(), perm)
}

func (o *Orchestrator) HasAny(perms ...string) bool {
	return authz.HasAny(o.CurrentUser(), perms...)
}

func (o *Orchestrator) HasAll(perms ...string) bool {
	return authz.HasAll(o.CurrentUser(), perms...)
}

// Touch records operator interaction for idle tracking.
func (o *Orchestrator) Touch() {
	o.monitor.Touch()
}

// SchedulerState is exposed for observability and tests.
func (o *Orchestrator) SchedulerState() refresh.State {
	return o.sched.State()
}

func (o *Orchestrator) MonitorRunning() bool {
	return o.monitor.Running()
}

func (o *Orchestrator) arm(accessToken string, expiry time.Time) {
	if expiry.IsZero() {
		if exp, ok := session.TokenExpiry(accessToken); ok {
			expiry = exp
		}
	}
	o.sched.Arm(expiry)
	o.monitor.Stop()
	o.monitor.Start()
}

// refreshOnce is the exchange the scheduler drives. An epoch guard makes a
// logout issued while the exchange is in flight win: the stale result is
// discarded instead of resurrecting the session.
func (o *Orchestrator) refreshOnce(ctx context.Context) (time.Time, error) {
	o.mu.Lock()
	epoch := o.epoch
	authed := o.authenticated
	o.mu.Unlock()

	if !authed {
		return time.Time{}, refresh.ErrCanceled
	}

	creds, err := o.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoCredentials) {
			return time.Time{}, refresh.ErrCanceled
		}
		return time.Time{}, err
	}

	resp, err := o.api.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return time.Time{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch || !o.authenticated {
		return time.Time{}, refresh.ErrCanceled
	}

	expiry := resp.ExpiresAt
	if expiry.IsZero() {
		if exp, ok := session.TokenExpiry(resp.AccessToken); ok {
			expiry = exp
		}
	}

	// Re-read so a concurrent fingerprint re-baseline is not clobbered.
	current, err := o.creds.Load(ctx)
	if err != nil {
		return time.Time{}, err
	}
	current.AccessToken = resp.AccessToken
	current.ExpiresAt = expiry
	if err := o.creds.Save(ctx, current); err != nil {
		return time.Time{}, fmt.Errorf("persist refreshed token: %w", err)
	}

	return expiry, nil
}

// forceLogout is the hard-failure path: local cleanup only, no network.
func (o *Orchestrator) forceLogout(reason string) {
	o.setUnauthenticated()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.creds.Clear(ctx); err != nil {
		o.log.Error().Err(err).Msg("clear credentials failed")
	}

	o.log.Warn().Str("reason", reason).Msg("forced logout")
}

func (o *Orchestrator) idleLogout() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.Logout(ctx); err != nil {
		o.log.Error().Err(err).Msg("idle logout cleanup failed")
	}
}

func (o *Orchestrator) setUnauthenticated() {
	o.mu.Lock()
	o.epoch++
	o.authenticated = false
	o.user = nil
	o.mu.Unlock()

	o.sched.Stop()
	o.monitor.Stop()
}

// deviceID reuses the persisted device identity when one exists, so the
// server sees this install as one device across logins.
func (o *Orchestrator) deviceID(ctx context.Context) string {
	if creds, err := o.creds.Load(ctx); err == nil && creds.DeviceID != "" {
		return creds.DeviceID
	}
	return ids.New()
}
