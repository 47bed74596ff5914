package handlers

import (
	"github.com/gin-gonic/gin"

	"energy-billing/internal/api/models"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
