package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Controller) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "FlavorNet backend is running!"})
}

// Healthz pings MongoDB.
func (h *Controller) Healthz(c *gin.Context) {
	if h.Ping == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
