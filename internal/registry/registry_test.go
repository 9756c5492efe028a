package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/models"
	"stockdesk/gateway/internal/store"
)

type fakeSessionAPI struct {
	sessions   []models.RemoteSession
	terminated []string
	others     int
	err        error
}

func (f *fakeSessionAPI) ListSessions(ctx context.Context) ([]models.RemoteSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.RemoteSession, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeSessionAPI) TerminateSession(ctx context.Context, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	f.terminated = append(f.terminated, sessionID)
	return nil
}

func (f *fakeSessionAPI) TerminateOthers(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.others++
	return nil
}

func newTestRegistry(t *testing.T, api *fakeSessionAPI, currentSession string) *Registry {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if currentSession != "" {
		err := s.Save(context.Background(), store.Credentials{
			AccessToken: "access",
			SessionID:   currentSession,
			Fingerprint: "fp",
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return New(api, s, zerolog.Nop())
}

func TestListReconcilesCurrentFlag(t *testing.T) {
	api := &fakeSessionAPI{sessions: []models.RemoteSession{
		{SessionID: "sess-a"},
		{SessionID: "sess-b", Current: true}, // stale server-side flag
	}}
	r := newTestRegistry(t, api, "sess-a")

	sessions, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !sessions[0].Current || sessions[1].Current {
		t.Errorf("current flags = %v/%v, want local session marked current", sessions[0].Current, sessions[1].Current)
	}
}

func TestTerminateRefusesCurrentSession(t *testing.T) {
	api := &fakeSessionAPI{}
	r := newTestRegistry(t, api, "sess-a")

	err := r.Terminate(context.Background(), "sess-a")
	if !errors.Is(err, ErrCurrentSession) {
		t.Fatalf("err = %v, want ErrCurrentSession", err)
	}
	if len(api.terminated) != 0 {
		t.Error("refused terminate still reached the server")
	}
}

func TestTerminateOtherDevice(t *testing.T) {
	api := &fakeSessionAPI{}
	r := newTestRegistry(t, api, "sess-a")

	if err := r.Terminate(context.Background(), "sess-b"); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(api.terminated) != 1 || api.terminated[0] != "sess-b" {
		t.Errorf("terminated = %v, want [sess-b]", api.terminated)
	}
}

func TestTerminateRequiresID(t *testing.T) {
	r := newTestRegistry(t, &fakeSessionAPI{}, "sess-a")
	if err := r.Terminate(context.Background(), ""); err == nil {
		t.Error("empty session id accepted")
	}
}

func TestTerminateOthers(t *testing.T) {
	api := &fakeSessionAPI{}
	r := newTestRegistry(t, api, "sess-a")

	if err := r.TerminateOthers(context.Background()); err != nil {
		t.Fatalf("TerminateOthers: %v", err)
	}
	if api.others != 1 {
		t.Errorf("others calls = %d, want 1", api.others)
	}
}

func TestListSurfacesTransportError(t *testing.T) {
	api := &fakeSessionAPI{err: errors.New("connection refused")}
	r := newTestRegistry(t, api, "sess-a")

	if _, err := r.List(context.Background()); err == nil {
		t.Error("transport error swallowed")
	}
}
