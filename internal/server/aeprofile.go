package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
)

func (s *Server) CreateProfile(c *gin.Context) {
	var req aedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := s.profileSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": profile})
}

func (s *Server) ListProfiles(c *gin.Context) {
	profiles, err := s.profileSvc.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, profiles)
}

func (s *Server) GetProfile(c *gin.Context) {
	profile, err := s.profileSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, profile)
}

func (s *Server) UpdateProfile(c *gin.Context) {
	var req aedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := s.profileSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, profile)
}

func (s *Server) DeleteProfile(c *gin.Context) {
	if err := s.profileSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LinkProfileMember sets or clears a profile's external workspace member id.
func (s *Server) LinkProfileMember(c *gin.Context) {
	var req struct {
		MemberID *string `json:"member_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := s.profileSvc.LinkMember(c.Request.Context(), c.Param("id"), req.MemberID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, profile)
}
