package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
)

func (s *Server) ListDeals(c *gin.Context) {
	filter := dealdomain.ListFilter{
		WonOnly: c.Query("won") == "true",
	}
	if raw := strings.TrimSpace(c.Query("ae_profile_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ae_profile_id"})
			return
		}
		filter.AEProfileID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		filter.To = &t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	deals, err := s.dealSvc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, deals)
}

func (s *Server) GetDeal(c *gin.Context) {
	deal, err := s.dealSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, deal)
}

func (s *Server) ToggleDealBonusRule(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := s.dealSvc.ToggleBonusRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"), req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, deal)
}
