package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gridfiledomain "github.com/smallbiznis/tilegrid/internal/gridfile/domain"
)

type registerFileRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (s *Server) RegisterFile(c *gin.Context) {
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

	var req registerFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fileSvc.Register(c.Request.Context(), userID, gridID, gridfiledomain.RegisterRequest{
		Name:        strings.TrimSpace(req.Name),
		ContentType: strings.TrimSpace(req.ContentType),
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListFiles(c *gin.Context) {
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

	files, err := s.fileSvc.List(c.Request.Context(), userID, gridID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": files})
}

func (s *Server) GetFile(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	fileID, err := pathID(c, "id", "file")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.fileSvc.Get(c.Request.Context(), userID, fileID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFile(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	fileID, err := pathID(c, "id", "file")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.fileSvc.Delete(c.Request.Context(), userID, fileID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
