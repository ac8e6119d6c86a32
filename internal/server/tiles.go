package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
)

type createTileRequest struct {
	Type           string  `json:"type"`
	X              int     `json:"x"`
	Y              int     `json:"y"`
	W              int     `json:"w"`
	H              int     `json:"h"`
	OnGrid         *bool   `json:"on_grid"`
	ChannelID      *string `json:"channel_id"`
	ConversationID *string `json:"conversation_id"`
	CallRoomLabel  *string `json:"call_room_label"`
}

type updateTileRequest struct {
	OnGrid *bool `json:"on_grid"`
	X      *int  `json:"x"`
	Y      *int  `json:"y"`
	W      *int  `json:"w"`
	H      *int  `json:"h"`
}

type layoutItemRequest struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

type batchLayoutRequest struct {
	Tiles []layoutItemRequest `json:"tiles"`
}

type tileIDsRequest struct {
	TileIDs []string `json:"tile_ids"`
}

func (s *Server) CreateTile(c *gin.Context) {
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

	var req createTileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var channelID *snowflake.ID
	if req.ChannelID != nil {
		ids, err := parseIDList([]string{*req.ChannelID}, "channel")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		channelID = &ids[0]
	}

	resp, err := s.tileSvc.Create(c.Request.Context(), userID, gridID, tiledomain.CreateRequest{
		Type:           strings.TrimSpace(req.Type),
		X:              req.X,
		Y:              req.Y,
		W:              req.W,
		H:              req.H,
		OnGrid:         req.OnGrid,
		ChannelID:      channelID,
		ConversationID: req.ConversationID,
		CallRoomLabel:  req.CallRoomLabel,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTiles(c *gin.Context) {
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
	includeHidden, err := parseOptionalBool(c.Query("include_hidden"))
	if err != nil {
		AbortWithError(c, newValidationError("include_hidden", "invalid_include_hidden", "invalid include_hidden"))
		return
	}

	tiles, err := s.tileSvc.List(c.Request.Context(), userID, gridID, tiledomain.ListRequest{
		IncludeHidden: includeHidden != nil && *includeHidden,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiles})
}

func (s *Server) HideTile(c *gin.Context) {
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

	if err := s.tileSvc.Hide(c.Request.Context(), userID, tileID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RestoreTiles accepts an empty body, which restores every hidden tile.
func (s *Server) RestoreTiles(c *gin.Context) {
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

	var req tileIDsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	tileIDs, err := parseIDList(req.TileIDs, "tile")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	restored, err := s.tileSvc.Restore(c.Request.Context(), userID, gridID, tileIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": restored})
}

func (s *Server) UpdateTile(c *gin.Context) {
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

	var req updateTileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tileSvc.Update(c.Request.Context(), userID, tileID, tiledomain.UpdateRequest{
		OnGrid: req.OnGrid,
		X:      req.X,
		Y:      req.Y,
		W:      req.W,
		H:      req.H,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BatchUpdateLayout(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req batchLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]tiledomain.LayoutItem, 0, len(req.Tiles))
	for _, item := range req.Tiles {
		ids, err := parseIDList([]string{item.ID}, "tile")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		items = append(items, tiledomain.LayoutItem{
			ID: ids[0],
			X:  item.X,
			Y:  item.Y,
			W:  item.W,
			H:  item.H,
		})
	}

	if err := s.tileSvc.BatchUpdateLayout(c.Request.Context(), userID, items); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DeleteTiles(c *gin.Context) {
	userID, err := userIDFromContext(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req tileIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	tileIDs, err := parseIDList(req.TileIDs, "tile")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deleted, err := s.tileSvc.Delete(c.Request.Context(), userID, tileIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": deleted}})
}
