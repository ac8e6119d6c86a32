package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
)

type createGridRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateGrid(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gridSvc.Create(c.Request.Context(), userID, griddomain.CreateGridRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListGrids(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grids, err := s.gridSvc.ListOwned(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grids})
}

func (s *Server) ListSharedGrids(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grids, err := s.gridSvc.ListShared(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grids})
}

func (s *Server) GetGrid(c *gin.Context) {
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

	resp, err := s.gridSvc.Get(c.Request.Context(), userID, gridID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGrid(c *gin.Context) {
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

	resp, err := s.gridSvc.Delete(c.Request.Context(), userID, gridID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ResolvePermission answers with the caller's effective tier, "none"
// included, so clients can decide which controls to show.
func (s *Server) ResolvePermission(c *gin.Context) {
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

	tier, err := s.resolver.Resolve(c.Request.Context(), userID, gridID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"grid_id":    gridID.String(),
		"permission": tier,
	}})
}
