package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
)

type postMessageRequest struct {
	Ciphertext string `json:"ciphertext"`
}

func (s *Server) PostMessage(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tileID, err := pathID(c, "id", "tile")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messageSvc.Post(c.Request.Context(), userID, tileID, messagedomain.PostRequest{
		Ciphertext: req.Ciphertext,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMessages(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tileID, err := pathID(c, "id", "tile")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messageSvc.List(c.Request.Context(), userID, tileID, messagedomain.ListRequest{
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
