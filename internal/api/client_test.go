package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stockdesk/gateway/internal/models"
)

func stubServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.POST("/auth/login", func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
			return
		}
		if req.Username != "admin" || req.Password != "admin123" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, LoginResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			SessionID:    "sess-abc",
			ExpiresAt:    time.Now().Add(15 * time.Minute),
			User: models.User{
				ID:       "u1",
				Username: "admin",
				Role:     models.RoleAdmin,
			},
		})
	})
	engine.POST("/auth/refresh", func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken != "refresh-token" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		c.JSON(http.StatusOK, RefreshResponse{
			AccessToken: "access-token-2",
			ExpiresAt:   time.Now().Add(15 * time.Minute),
		})
	})
	engine.GET("/auth/sessions", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer access-token" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		c.JSON(http.StatusOK, []models.RemoteSession{
			{SessionID: "sess-abc", Device: "this device", Current: true},
			{SessionID: "sess-def", Device: "other laptop"},
		})
	})
	engine.DELETE("/auth/sessions/:id", func(c *gin.Context) {
		switch c.Param("id") {
		case "others":
			c.Status(http.StatusNoContent)
		case "missing":
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			c.Status(http.StatusNoContent)
		}
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	client := New(srv.URL, 5*time.Second, func() string { return "access-token" })
	return srv, client
}

func TestLogin(t *testing.T) {
	_, client := stubServer(t)

	resp, err := client.Login(context.Background(), LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.SessionID != "sess-abc" || resp.User.Role != models.RoleAdmin {
		t.Errorf("unexpected login response: %+v", resp)
	}
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	_, client := stubServer(t)

	_, err := client.Login(context.Background(), LoginRequest{Username: "admin", Password: "wrong"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("err = %v, want 401 HTTPError", err)
	}
}

func TestRefresh(t *testing.T) {
	_, client := stubServer(t)

	resp, err := client.Refresh(context.Background(), "refresh-token")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if resp.AccessToken != "access-token-2" {
		t.Errorf("access token = %q", resp.AccessToken)
	}
}

func TestListSessionsSendsBearer(t *testing.T) {
	_, client := stubServer(t)

	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if !sessions[0].Current || sessions[1].Current {
		t.Error("is_current flag not decoded")
	}
}

func TestTerminateSession(t *testing.T) {
	_, client := stubServer(t)

	if err := client.TerminateSession(context.Background(), "sess-def"); err != nil {
		t.Errorf("TerminateSession: %v", err)
	}
	if err := client.TerminateSession(context.Background(), "missing"); !IsStatus(err, http.StatusNotFound) {
		t.Errorf("err = %v, want 404 HTTPError", err)
	}
	if err := client.TerminateOthers(context.Background()); err != nil {
		t.Errorf("TerminateOthers: %v", err)
	}
}
