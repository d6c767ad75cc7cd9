package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) TriggerSync(c *gin.Context) {
	var actor *string
	if v := c.GetHeader("X-Actor-User-Id"); v != "" {
		actor = &v
	}

	result, err := s.syncSvc.Run(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, result)
}

func (s *Server) GetLastSyncResult(c *gin.Context) {
	result, err := s.syncSvc.LastResult(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync has completed yet"})
		return
	}
	respondData(c, result)
}
