package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
)

func (s *Server) CreatePlan(c *gin.Context) {
	var req plandomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := s.planSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": plan})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, plans)
}

func (s *Server) GetPlan(c *gin.Context) {
	plan, err := s.planSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, plan)
}

func (s *Server) UpdatePlan(c *gin.Context) {
	var req plandomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := s.planSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, plan)
}

func (s *Server) DeletePlan(c *gin.Context) {
	if err := s.planSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
