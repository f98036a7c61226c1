package handler

import (
	"strconv"

	"backend/internal/apperr"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the standard envelope using the
// apperr status table.
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// parseIDParam reads a numeric :id path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, apperr.ErrInvalidInput)
		return 0, false
	}
	return uint(id), true
}
