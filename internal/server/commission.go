package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	commdomain "github.com/paylinelabs/payline/internal/commission/domain"
)

func (s *Server) GetStatement(c *gin.Context) {
	year, quarter, ok := parsePeriod(c)
	if !ok {
		return
	}

	statement, err := s.commissionSvc.Statement(c.Request.Context(), commdomain.StatementRequest{
		AEProfileID: c.Param("id"),
		View:        c.Query("view"),
		Year:        year,
		Quarter:     quarter,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, statement)
}

func (s *Server) GetReporting(c *gin.Context) {
	year, quarter, ok := parsePeriod(c)
	if !ok {
		return
	}

	rows, err := s.commissionSvc.Reporting(c.Request.Context(), c.Query("view"), year, quarter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rows)
}

func (s *Server) GetLeaderboard(c *gin.Context) {
	year, quarter, ok := parsePeriod(c)
	if !ok {
		return
	}

	rows, err := s.commissionSvc.Leaderboard(c.Request.Context(), c.Query("view"), year, quarter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rows)
}

// parsePeriod reads optional year/quarter query params; zero means "now".
func parsePeriod(c *gin.Context) (year, quarter int, ok bool) {
	var err error
	if raw := c.Query("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return 0, 0, false
		}
	}
	if raw := c.Query("quarter"); raw != "" {
		if quarter, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quarter"})
			return 0, 0, false
		}
	}
	return year, quarter, true
}
