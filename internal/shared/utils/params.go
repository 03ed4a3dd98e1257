package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/errors"
)

// ParseUintParam parses a positive numeric route parameter.
// entityName is used in error messages (e.g., "plan").
func ParseUintParam(c *gin.Context, paramName, entityName string) (uint, error) {
	raw := c.Param(paramName)
	if raw == "" {
		return 0, errors.NewValidationError(entityName + " ID is required")
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid %s ID", entityName))
	}
	return uint(id), nil
}

// GetUserIDFromContext returns the user id placed in the context by the auth middleware.
func GetUserIDFromContext(c *gin.Context) (uint, error) {
	v, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, errors.NewUnauthorizedError(constants.ErrMsgUnauthorized)
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, errors.NewUnauthorizedError(constants.ErrMsgUnauthorized)
	}
	return id, nil
}

func GetUserEmailFromContext(c *gin.Context) string {
	return c.GetString(constants.ContextKeyUserEmail)
}
