package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/household"
)

const (
	CodeAlreadyExists   = "already_exists"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
	CodeRateLimited     = "rate_limited"
)

// StatusFor maps a core error onto an HTTP status and a stable error code.
func StatusFor(err error) (int, string) {
	switch {
	case household.IsDuplicateName(err):
		return http.StatusConflict, CodeAlreadyExists
	case errors.Is(err, household.ErrEmptyName):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, household.ErrHouseholdNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"error": message, "code": CodeNotFound})
}

func respondInvalid(c *gin.Context, issues any) {
	c.JSON(http.StatusBadRequest, gin.H{"error": issues, "code": CodeInvalidArgument})
}
