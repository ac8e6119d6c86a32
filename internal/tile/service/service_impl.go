package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/authorization"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/events"
	"github.com/smallbiznis/tilegrid/internal/observability/metrics"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/internal/tile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Resolver  permissiondomain.Resolver
	Limits    *config.LimitsHolder
	Authz     authorization.Service
	Channels  domain.ChannelLookup `optional:"true"`
	Publisher events.Publisher     `optional:"true"`
	AuditSvc  auditdomain.Service  `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	resolver  permissiondomain.Resolver
	limits    *config.LimitsHolder
	authz     authorization.Service
	channels  domain.ChannelLookup
	publisher events.Publisher
	auditSvc  auditdomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("tile.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		resolver:  p.Resolver,
		limits:    p.Limits,
		authz:     p.Authz,
		channels:  p.Channels,
		publisher: p.Publisher,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, userID, gridID snowflake.ID, req domain.CreateRequest) (*domain.TileResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if gridID == 0 {
		return nil, domain.ErrInvalidGrid
	}
	tileType := domain.Type(strings.ToLower(strings.TrimSpace(req.Type)))
	if !tileType.Valid() {
		return nil, domain.ErrInvalidType
	}
	if err := validateRect(req.X, req.Y, req.W, req.H); err != nil {
		return nil, err
	}
	if tileType == domain.TypeChannel && req.ChannelID == nil {
		return nil, domain.ErrInvalidChannel
	}
	if req.ChannelID != nil {
		if err := s.requireChannelView(ctx, userID, *req.ChannelID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	tile := domain.Tile{
		ID:             s.genID.Generate(),
		GridID:         gridID,
		Type:           string(tileType),
		X:              req.X,
		Y:              req.Y,
		W:              req.W,
		H:              req.H,
		OnGrid:         true,
		ChannelID:      req.ChannelID,
		ConversationID: trimmedOrNil(req.ConversationID),
		CallRoomLabel:  trimmedOrNil(req.CallRoomLabel),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.OnGrid != nil {
		tile.OnGrid = *req.OnGrid
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, gridID); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Create(ctx, tile)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTileTransition(ctx, "create", 1)
	return toResponse(tile), nil
}

func (s *Service) List(ctx context.Context, userID, gridID snowflake.ID, req domain.ListRequest) ([]domain.TileResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.resolver.Require(ctx, userID, permissiondomain.TierView, gridID); err != nil {
		return nil, err
	}
	tiles, err := s.repo.ListByGrid(ctx, gridID, req.IncludeHidden)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TileResponse, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, *toResponse(t))
	}
	return out, nil
}

// Hide soft-removes a tile from the active layout. Hiding an already hidden
// tile succeeds without writing.
func (s *Service) Hide(ctx context.Context, userID, tileID snowflake.ID) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if tileID == 0 {
		return domain.ErrInvalidTile
	}

	var (
		gridID  snowflake.ID
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tile, err := repo.FindByID(ctx, tileID)
		if err != nil {
			return err
		}
		if tile == nil {
			return domain.ErrForbidden
		}
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, tile.GridID); err != nil {
			return err
		}
		gridID = tile.GridID
		if tile.Hidden {
			return nil
		}
		changed = true
		return repo.SetHidden(ctx, tileID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	if changed {
		s.metrics.RecordTileTransition(ctx, "hide", 1)
		events.Emit(ctx, s.publisher, s.log, events.TilesHiddenTopic, gridID, map[string]any{
			"grid_id":  gridID.String(),
			"tile_ids": []string{tileID.String()},
			"actor_id": userID.String(),
		})
	}
	return nil
}

func (s *Service) Restore(ctx context.Context, userID, gridID snowflake.ID, tileIDs []snowflake.ID) ([]domain.RestoredTile, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if gridID == 0 {
		return nil, domain.ErrInvalidGrid
	}
	ids := dedupe(tileIDs)
	if len(ids) > s.limits.Get().MaxBatchTiles {
		return nil, domain.ErrBatchTooLarge
	}

	var restored []domain.Tile
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, gridID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		var (
			tiles []domain.Tile
			err   error
		)
		if len(ids) == 0 {
			tiles, err = repo.ListHidden(ctx, gridID)
		} else {
			tiles, err = repo.FindByIDs(ctx, ids)
		}
		if err != nil {
			return err
		}
		if len(ids) > 0 && len(tiles) != len(ids) {
			return domain.ErrForbidden
		}
		hidden := make([]domain.Tile, 0, len(tiles))
		restoreIDs := make([]snowflake.ID, 0, len(tiles))
		for _, t := range tiles {
			if t.GridID != gridID {
				return domain.ErrForbidden
			}
			// Placed and tray tiles move through Update, not restore.
			if !t.Hidden {
				continue
			}
			hidden = append(hidden, t)
			restoreIDs = append(restoreIDs, t.ID)
		}
		if err := repo.Restore(ctx, restoreIDs, now); err != nil {
			return err
		}
		restored = hidden
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range restored {
		restored[i].Hidden = false
		restored[i].OnGrid = true
		restored[i].UpdatedAt = now
	}

	out := s.summarize(ctx, restored)
	if len(restored) > 0 {
		s.metrics.RecordTileTransition(ctx, "restore", len(restored))
		events.Emit(ctx, s.publisher, s.log, events.TilesRestored, gridID, map[string]any{
			"grid_id":  gridID.String(),
			"tile_ids": tileIDStrings(restored),
			"actor_id": userID.String(),
		})
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, userID, tileID snowflake.ID, req domain.UpdateRequest) (*domain.TileResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if tileID == 0 {
		return nil, domain.ErrInvalidTile
	}
	if req.Empty() {
		return nil, domain.ErrInvalidUpdate
	}
	if err := validatePartialRect(req); err != nil {
		return nil, err
	}

	var updated *domain.Tile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tile, err := repo.FindByID(ctx, tileID)
		if err != nil {
			return err
		}
		if tile == nil {
			return domain.ErrForbidden
		}
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, tile.GridID); err != nil {
			return err
		}

		now := s.clock.Now()
		fields := map[string]any{"updated_at": now}
		if req.OnGrid != nil {
			fields["on_grid"] = *req.OnGrid
			tile.OnGrid = *req.OnGrid
		}
		if req.X != nil {
			fields["x"] = *req.X
			tile.X = *req.X
		}
		if req.Y != nil {
			fields["y"] = *req.Y
			tile.Y = *req.Y
		}
		if req.W != nil {
			fields["w"] = *req.W
			tile.W = *req.W
		}
		if req.H != nil {
			fields["h"] = *req.H
			tile.H = *req.H
		}
		if err := repo.Update(ctx, tileID, fields); err != nil {
			return err
		}
		tile.UpdatedAt = now
		updated = tile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTileTransition(ctx, "update", 1)
	return toResponse(*updated), nil
}

// BatchUpdateLayout repositions every tile in items or none of them.
// Authorization is decided against rows locked in the same transaction as
// the writes.
func (s *Service) BatchUpdateLayout(ctx context.Context, userID snowflake.ID, items []domain.LayoutItem) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if err := s.validateBatch(items); err != nil {
		return err
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	var gridIDs []snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tiles, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(tiles) != len(ids) {
			return domain.ErrForbidden
		}
		gridIDs = owningGrids(tiles)
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, gridIDs...); err != nil {
			return err
		}

		now := s.clock.Now()
		for _, item := range items {
			if err := repo.UpdateRect(ctx, item, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.log.Debug("layout batch rejected", zap.String("user_id", userID.String()), zap.Int("tiles", len(items)))
		}
		return err
	}

	s.metrics.RecordTileTransition(ctx, "layout", len(items))
	for _, gridID := range gridIDs {
		events.Emit(ctx, s.publisher, s.log, events.TilesMovedTopic, gridID, map[string]any{
			"grid_id":  gridID.String(),
			"actor_id": userID.String(),
		})
	}
	return nil
}

// Delete permanently removes tiles and their messages. Edit access is
// required on the grid of every tile; any miss rejects the whole call.
func (s *Service) Delete(ctx context.Context, userID snowflake.ID, tileIDs []snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrUnauthenticated
	}
	ids := dedupe(tileIDs)
	if len(ids) == 0 {
		return 0, domain.ErrInvalidBatch
	}
	if len(ids) > s.limits.Get().MaxBatchTiles {
		return 0, domain.ErrBatchTooLarge
	}

	var (
		deleted int64
		tiles   []domain.Tile
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return domain.ErrForbidden
		}
		if err := s.resolver.WithTx(tx).Require(ctx, userID, permissiondomain.TierEdit, owningGrids(found)...); err != nil {
			return err
		}
		n, err := repo.Delete(ctx, ids)
		if err != nil {
			return err
		}
		deleted = n
		tiles = found
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.log.Info("tile delete denied",
				zap.String("user_id", userID.String()),
				zap.Strings("tile_ids", idStrings(ids)),
			)
		}
		return 0, err
	}

	s.metrics.RecordTileTransition(ctx, "delete", int(deleted))
	byGrid := make(map[snowflake.ID][]string)
	for _, t := range tiles {
		byGrid[t.GridID] = append(byGrid[t.GridID], t.ID.String())
	}
	for gridID, gridTiles := range byGrid {
		events.Emit(ctx, s.publisher, s.log, events.TilesDeletedTopic, gridID, map[string]any{
			"grid_id":  gridID.String(),
			"tile_ids": gridTiles,
			"actor_id": userID.String(),
		})
		if s.auditSvc != nil {
			gid := gridID
			if err := s.auditSvc.AuditLog(ctx, &gid, &userID, "tiles.deleted", "grid", nil, map[string]any{
				"tile_ids": gridTiles,
			}); err != nil {
				s.log.Warn("failed to write audit log", zap.Error(err))
			}
		}
	}
	return deleted, nil
}

// SeedDefaults writes the configured starter tiles inside tx.
func (s *Service) SeedDefaults(ctx context.Context, tx *gorm.DB, gridID snowflake.ID) error {
	templates := s.limits.Get().DefaultTiles
	if len(templates) == 0 {
		return nil
	}
	now := s.clock.Now()
	tiles := make([]domain.Tile, 0, len(templates))
	for _, tpl := range templates {
		tiles = append(tiles, domain.Tile{
			ID:        s.genID.Generate(),
			GridID:    gridID,
			Type:      tpl.Type,
			X:         tpl.X,
			Y:         tpl.Y,
			W:         tpl.W,
			H:         tpl.H,
			OnGrid:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return s.repo.WithTx(tx).Create(ctx, tiles...)
}

func (s *Service) validateBatch(items []domain.LayoutItem) error {
	if len(items) == 0 {
		return domain.ErrInvalidBatch
	}
	if len(items) > s.limits.Get().MaxBatchTiles {
		return domain.ErrBatchTooLarge
	}
	seen := make(map[snowflake.ID]struct{}, len(items))
	for _, item := range items {
		if item.ID == 0 {
			return domain.ErrInvalidTile
		}
		if _, ok := seen[item.ID]; ok {
			return domain.ErrDuplicateTile
		}
		seen[item.ID] = struct{}{}
		if err := validateRect(item.X, item.Y, item.W, item.H); err != nil {
			return err
		}
	}
	return nil
}

// requireChannelView rejects channel references the caller cannot see.
// Unknown channels are indistinguishable from channels without membership.
func (s *Service) requireChannelView(ctx context.Context, userID, channelID snowflake.ID) error {
	if channelID == 0 || s.authz == nil {
		return domain.ErrForbidden
	}
	err := s.authz.Authorize(ctx, userID, channelID, authorization.ObjectChannel, authorization.ActionChannelView)
	if err != nil {
		if errors.Is(err, authorization.ErrForbidden) {
			return domain.ErrForbidden
		}
		return err
	}
	return nil
}

// summarize labels restored tiles. The restore has already committed, so a
// failed channel lookup falls back to the conversation or call labels.
func (s *Service) summarize(ctx context.Context, tiles []domain.Tile) []domain.RestoredTile {
	channels := map[snowflake.ID]domain.ChannelSummary{}
	if s.channels != nil {
		var ids []snowflake.ID
		for _, t := range tiles {
			if t.ChannelID != nil {
				ids = append(ids, *t.ChannelID)
			}
		}
		if len(ids) > 0 {
			found, err := s.channels.Summaries(ctx, dedupe(ids))
			if err != nil {
				s.log.Warn("failed to resolve channel labels", zap.Error(err))
			} else {
				channels = found
			}
		}
	}

	out := make([]domain.RestoredTile, 0, len(tiles))
	for _, t := range tiles {
		var ch *domain.ChannelSummary
		if t.ChannelID != nil {
			if summary, ok := channels[*t.ChannelID]; ok {
				ch = &summary
			}
		}
		out = append(out, Summarize(t, ch))
	}
	return out
}

func validateRect(x, y, w, h int) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 {
		return domain.ErrInvalidRect
	}
	return nil
}

func validatePartialRect(req domain.UpdateRequest) error {
	if (req.X != nil && *req.X < 0) || (req.Y != nil && *req.Y < 0) {
		return domain.ErrInvalidRect
	}
	if (req.W != nil && *req.W <= 0) || (req.H != nil && *req.H <= 0) {
		return domain.ErrInvalidRect
	}
	return nil
}

func owningGrids(tiles []domain.Tile) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(tiles))
	for _, t := range tiles {
		ids = append(ids, t.GridID)
	}
	return dedupe(ids)
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func tileIDStrings(tiles []domain.Tile) []string {
	out := make([]string, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t.ID.String())
	}
	return out
}

func idStrings(ids []snowflake.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(t domain.Tile) *domain.TileResponse {
	resp := &domain.TileResponse{
		ID:             t.ID.String(),
		GridID:         t.GridID.String(),
		Type:           t.Type,
		X:              t.X,
		Y:              t.Y,
		W:              t.W,
		H:              t.H,
		OnGrid:         t.OnGrid,
		Hidden:         t.Hidden,
		State:          t.State(),
		ConversationID: t.ConversationID,
		CallRoomLabel:  t.CallRoomLabel,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.ChannelID != nil {
		id := t.ChannelID.String()
		resp.ChannelID = &id
	}
	return resp
}
