package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
)

type createChannelRequest struct {
	Name    string  `json:"name"`
	Emoji   string  `json:"emoji"`
	GroupID *string `json:"group_id"`
}

type createChannelGroupRequest struct {
	Name string `json:"name"`
}

type addChannelMembersRequest struct {
	Emails []string `json:"emails"`
}

func (s *Server) CreateChannel(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var groupID *snowflake.ID
	if req.GroupID != nil && strings.TrimSpace(*req.GroupID) != "" {
		ids, err := parseIDList([]string{*req.GroupID}, "group")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		groupID = &ids[0]
	}

	resp, err := s.channelSvc.CreateChannel(c.Request.Context(), userID, channeldomain.CreateChannelRequest{
		Name:    req.Name,
		Emoji:   strings.TrimSpace(req.Emoji),
		GroupID: groupID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateChannelGroup(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createChannelGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.channelSvc.CreateGroup(c.Request.Context(), userID, channeldomain.CreateGroupRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListChannels(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	channels, err := s.channelSvc.ListChannels(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": channels})
}

func (s *Server) ListChannelMembers(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	channelID, err := pathID(c, "id", "channel")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	members, err := s.channelSvc.ListMembers(c.Request.Context(), userID, channelID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) AddChannelMembers(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	channelID, err := pathID(c, "id", "channel")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addChannelMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.channelSvc.AddMembersByEmail(c.Request.Context(), userID, channelID, req.Emails)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
