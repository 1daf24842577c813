package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPricing serves the static plan catalog. Public by design so the
// marketing surface can render it without a session.
func (s *Server) GetPricing(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog)
}
