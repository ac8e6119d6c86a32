package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
)

// ProvisionMe reports the outcome of the provisioning AuthRequired already
// ran for this request. Created is true only on the first call.
func (s *Server) ProvisionMe(c *gin.Context) {
	value, ok := c.Get(contextProvisionKey)
	result, _ := value.(*userdomain.ProvisionResult)
	if !ok || result == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": result})
}

func (s *Server) GetMe(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.userSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type setAdminRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

func (s *Server) SetUserAdmin(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "id", "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsAdmin == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.userSvc.SetAdmin(c.Request.Context(), userID, targetID, *req.IsAdmin)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
