package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status        string `json:"status"`
	Environment   string `json:"environment"`
	Authenticated bool   `json:"authenticated"`
	Refresh       string `json:"refresh"`
}

func (h HandlerSet) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:        "ok",
		Environment:   h.cfg.Environment,
		Authenticated: h.auth.IsAuthenticated(),
		Refresh:       string(h.auth.SchedulerState()),
	})
}
