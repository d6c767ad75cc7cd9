package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
)

func (s *Server) UpsertFxRate(c *gin.Context) {
	var req fxdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rate, err := s.fxSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, rate)
}

func (s *Server) ListFxRates(c *gin.Context) {
	rates, err := s.fxSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rates)
}
