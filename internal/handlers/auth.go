package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockdesk/gateway/internal/api"
	"stockdesk/gateway/internal/authz"
	"stockdesk/gateway/internal/models"
	"stockdesk/gateway/internal/registry"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		// The upstream's message is surfaced verbatim.
		var httpErr *api.HTTPError
		if errors.As(err, &httpErr) {
			c.JSON(httpErr.StatusCode, gin.H{"error": httpErr.Message})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	user := h.auth.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type permissionResponse struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Granted     bool   `json:"granted"`
}

// ListPermissions returns the full catalogue with the caller's grants
// marked, for the UI's permission editor.
func (h HandlerSet) ListPermissions(c *gin.Context) {
	resp := make([]permissionResponse, 0)
	for _, key := range authz.All() {
		resp = append(resp, permissionResponse{
			Key:         key,
			Description: authz.Describe(key),
			Granted:     h.auth.HasPermission(key),
		})
	}

	c.JSON(http.StatusOK, gin.H{"permissions": resp})
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h HandlerSet) TerminateSession(c *gin.Context) {
	id := c.Param("id")

	var err error
	if id == "others" {
		err = h.sessions.TerminateOthers(c.Request.Context())
	} else {
		err = h.sessions.Terminate(c.Request.Context(), id)
	}

	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, registry.ErrCurrentSession):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot_terminate_current_session"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

func (h HandlerSet) UpdatePermissions(c *gin.Context) {
	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, p := range req.Permissions {
		if !authz.Known(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_permission", "permission": p})
			return
		}
	}

	if err := h.auth.UpdateUserPermissions(c.Request.Context(), req.Permissions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(h.auth.CurrentUser())})
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Permissions: authz.EffectivePermissions(user),
	}
}
