// Package handlers exposes the gateway's localhost HTTP surface: login,
// session lifecycle, and permission management for the admin UI.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/auth"
	"stockdesk/gateway/internal/authz"
	"stockdesk/gateway/internal/config"
	"stockdesk/gateway/internal/middleware"
	"stockdesk/gateway/internal/registry"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *auth.Orchestrator
	sessions *registry.Registry
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, orch *auth.Orchestrator, sessions *registry.Registry) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     orch,
		sessions: sessions,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		public := v1.Group("/auth")
		public.POST("/login", h.Login)

		protected := v1.Group("/auth")
		protected.Use(
			middleware.RequireAuth(h.auth),
			middleware.Activity(h.auth),
		)
		protected.POST("/logout", h.Logout)
		protected.GET("/me", h.Me)
		protected.GET("/permissions", h.ListPermissions)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:id", h.TerminateSession)

		perms := v1.Group("/auth")
		perms.Use(
			middleware.RequirePermissions(h.auth, authz.PermUsersEdit),
			middleware.Activity(h.auth),
		)
		perms.PUT("/permissions", h.UpdatePermissions)
	}
}
