package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	aedomain "github.com/paylinelabs/payline/internal/aeprofile/domain"
	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	commdomain "github.com/paylinelabs/payline/internal/commission/domain"
	dealdomain "github.com/paylinelabs/payline/internal/deal/domain"
	fxdomain "github.com/paylinelabs/payline/internal/fxrate/domain"
	plandomain "github.com/paylinelabs/payline/internal/plan/domain"
	"github.com/paylinelabs/payline/pkg/db/pagination"
)

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondList(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondPage(c *gin.Context, data any, info *pagination.PageInfo) {
	if info == nil {
		respondList(c, data)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": info})
}

// respondError maps domain sentinel errors onto HTTP statuses; anything
// unmapped is a 500 with the message withheld from the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, aedomain.ErrProfileNotFound),
		errors.Is(err, dealdomain.ErrDealNotFound),
		errors.Is(err, commdomain.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, plandomain.ErrInvalidPlan),
		errors.Is(err, aedomain.ErrInvalidProfile),
		errors.Is(err, fxdomain.ErrInvalidRate),
		errors.Is(err, commdomain.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, aedomain.ErrMemberAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attiodomain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attiodomain.ErrMissingAPIKey):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
