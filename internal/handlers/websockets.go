package handlers

import (
	"github.com/gin-gonic/gin"
)

// wsConnect upgrades to the render stream. A new client first receives the
// latest frame of every panel, then live frames as they are rendered.
func (h *Handler) wsConnect(c *gin.Context) {
	h.services.ServeWS(c.Writer, c.Request)
}
