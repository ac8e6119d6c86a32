package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	gridID, err := pathID(c, "id", "grid")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		Action *string `form:"action"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := auditdomain.ListAuditLogRequest{Pagination: query.Pagination}
	if query.Action != nil {
		req.Action = strings.TrimSpace(*query.Action)
		if req.Action == "" {
			AbortWithError(c, auditdomain.ErrInvalidAction)
			return
		}
	}

	resp, err := s.auditSvc.List(c.Request.Context(), userID, gridID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
