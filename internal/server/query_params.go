package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// pathID reads a snowflake path parameter. Malformed ids are reported as
// validation errors naming the parameter.
func pathID(c *gin.Context, name, field string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || parsed <= 0 {
		return 0, newValidationError(field, "invalid_"+field, "invalid id")
	}
	return parsed, nil
}

func parseIDList(values []string, field string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		parsed, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || parsed <= 0 {
			return nil, newValidationError(field, "invalid_"+field, "invalid id")
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}
