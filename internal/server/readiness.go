package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
	ReadinessStateOptional ReadinessState = "optional"
)

type ReadinessIssue struct {
	ID       string            `json:"id"`
	Status   ReadinessState    `json:"status"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

type ReadinessResponse struct {
	SystemState ReadinessState   `json:"system_state"`
	Issues      []ReadinessIssue `json:"issues"`
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the service can do useful work: database reachable,
// at least one commission plan, and optionally a configured CRM key.
func (s *Server) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	issues := []ReadinessIssue{}
	ready := true

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		ready = false
		issues = append(issues, ReadinessIssue{
			ID:       "database_reachable",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"error": err.Error()},
		})
	} else {
		issues = append(issues, ReadinessIssue{ID: "database_reachable", Status: ReadinessStateReady})
	}

	plans, err := s.planSvc.List(ctx)
	if err != nil || len(plans) == 0 {
		ready = false
		issues = append(issues, ReadinessIssue{
			ID:       "commission_plan_exists",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"plans": "0"},
		})
	} else {
		issues = append(issues, ReadinessIssue{ID: "commission_plan_exists", Status: ReadinessStateReady})
	}

	// Sync works without a key but stays inert; surface it as optional.
	keyStatus := ReadinessStateOptional
	if s.cfg.Attio.APIKey != "" {
		keyStatus = ReadinessStateReady
	}
	issues = append(issues, ReadinessIssue{ID: "attio_api_key_configured", Status: keyStatus})

	state := ReadinessStateReady
	status := http.StatusOK
	if !ready {
		state = ReadinessStateNotReady
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ReadinessResponse{SystemState: state, Issues: issues})
}
