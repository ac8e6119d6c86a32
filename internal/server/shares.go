package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
)

type createShareRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

func (s *Server) CreateShare(c *gin.Context) {
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

	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gridSvc.CreateShare(c.Request.Context(), userID, gridID, griddomain.CreateShareRequest{
		Email:      strings.TrimSpace(req.Email),
		Permission: strings.TrimSpace(req.Permission),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListShares(c *gin.Context) {
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

	shares, err := s.gridSvc.ListShares(c.Request.Context(), userID, gridID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": shares})
}

func (s *Server) RevokeShare(c *gin.Context) {
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
	targetID, err := pathID(c, "userId", "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.gridSvc.RevokeShare(c.Request.Context(), userID, gridID, targetID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
