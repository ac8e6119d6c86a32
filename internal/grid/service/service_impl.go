package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/blobstore"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/events"
	"github.com/smallbiznis/tilegrid/internal/grid/domain"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	userservice "github.com/smallbiznis/tilegrid/internal/user/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultGridName = "My grid"
	maxNameLength   = 120
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Users     userdomain.Repository
	Resolver  permissiondomain.Resolver
	Tiles     domain.TileSeeder
	Publisher events.Publisher    `optional:"true"`
	AuditSvc  auditdomain.Service `optional:"true"`
	Blobs     blobstore.Store     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	users     userdomain.Repository
	resolver  permissiondomain.Resolver
	tiles     domain.TileSeeder
	publisher events.Publisher
	auditSvc  auditdomain.Service
	blobs     blobstore.Store
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("grid.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		users:     p.Users,
		resolver:  p.Resolver,
		tiles:     p.Tiles,
		publisher: p.Publisher,
		auditSvc:  p.AuditSvc,
		blobs:     p.Blobs,
	}
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateGridRequest) (*domain.GridResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	var grid *domain.Grid
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createWithTiles(ctx, tx, userID, name)
		if err != nil {
			return err
		}
		grid = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.log, events.GridCreatedTopic, grid.ID, map[string]any{
		"grid_id":  grid.ID.String(),
		"owner_id": grid.OwnerID.String(),
		"name":     grid.Name,
	})
	return toResponse(*grid, permissiondomain.TierEdit), nil
}

// ProvisionDefault creates the starter grid for a freshly provisioned user
// inside the caller's transaction.
func (s *Service) ProvisionDefault(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) error {
	if ownerID == 0 {
		return domain.ErrInvalidUser
	}
	_, err := s.createWithTiles(ctx, tx, ownerID, DefaultGridName)
	return err
}

func (s *Service) createWithTiles(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, name string) (*domain.Grid, error) {
	now := s.clock.Now()
	grid := domain.Grid{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.WithTx(tx).Create(ctx, grid); err != nil {
		return nil, err
	}
	if s.tiles != nil {
		if err := s.tiles.SeedDefaults(ctx, tx, grid.ID); err != nil {
			return nil, err
		}
	}
	return &grid, nil
}

func (s *Service) ListOwned(ctx context.Context, userID snowflake.ID) ([]domain.GridResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	grids, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GridResponse, 0, len(grids))
	for _, g := range grids {
		out = append(out, *toResponse(g, permissiondomain.TierEdit))
	}
	return out, nil
}

func (s *Service) ListShared(ctx context.Context, userID snowflake.ID) ([]domain.GridResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	items, err := s.repo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GridResponse, 0, len(items))
	for _, item := range items {
		tier := permissiondomain.TierView
		if parsed, _ := permissiondomain.ParseShareTier(item.Permission); parsed == permissiondomain.TierEdit {
			tier = permissiondomain.TierEdit
		}
		out = append(out, *toResponse(item.Grid, tier))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID, gridID snowflake.ID) (*domain.GridResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	tier, err := s.resolver.Resolve(ctx, userID, gridID)
	if err != nil {
		return nil, err
	}
	if !tier.Satisfies(permissiondomain.TierView) {
		return nil, domain.ErrForbidden
	}
	grid, err := s.repo.FindByID(ctx, gridID)
	if err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, domain.ErrForbidden
	}
	return toResponse(*grid, tier), nil
}

func (s *Service) Delete(ctx context.Context, userID, gridID snowflake.ID) (*domain.DeleteGridResult, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	var (
		tilesDeleted int64
		objectKeys   []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireOwner(ctx, repo, userID, gridID); err != nil {
			return err
		}
		count, keys, err := repo.DeleteCascade(ctx, gridID)
		if err != nil {
			return err
		}
		tilesDeleted = count
		objectKeys = keys
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.log.Info("grid delete denied",
				zap.String("grid_id", gridID.String()),
				zap.String("user_id", userID.String()),
			)
		}
		return nil, err
	}

	s.removeBlobs(ctx, objectKeys)
	events.Emit(ctx, s.publisher, s.log, events.GridDeletedTopic, gridID, map[string]any{
		"grid_id":       gridID.String(),
		"tiles_deleted": tilesDeleted,
	})
	s.audit(ctx, gridID, userID, "grid.deleted", "grid", gridID.String(), map[string]any{
		"tiles_deleted": tilesDeleted,
		"files_deleted": len(objectKeys),
	})

	return &domain.DeleteGridResult{TilesDeleted: tilesDeleted, FilesDeleted: len(objectKeys)}, nil
}

func (s *Service) CreateShare(ctx context.Context, userID, gridID snowflake.ID, req domain.CreateShareRequest) (*domain.ShareResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	email, err := userservice.NormalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	tier, ok := permissiondomain.ParseShareTier(req.Permission)
	if !ok {
		return nil, domain.ErrInvalidPermission
	}

	var (
		stored *domain.GridShare
		target *userdomain.User
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireOwner(ctx, repo, userID, gridID); err != nil {
			return err
		}

		found, err := s.users.WithTx(tx).FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		if found.ID == userID {
			return domain.ErrInvalidShareTarget
		}
		target = found

		now := s.clock.Now()
		share, err := repo.UpsertShare(ctx, domain.GridShare{
			ID:         s.genID.Generate(),
			GridID:     gridID,
			UserID:     found.ID,
			Permission: string(tier),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		stored = share
		return repo.Touch(ctx, gridID, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.log.Info("grid share denied",
				zap.String("grid_id", gridID.String()),
				zap.String("user_id", userID.String()),
			)
		}
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.log, events.GridSharedTopic, gridID, map[string]any{
		"grid_id":    gridID.String(),
		"user_id":    target.ID.String(),
		"permission": stored.Permission,
	})
	s.audit(ctx, gridID, userID, "share.upserted", "user", target.ID.String(), map[string]any{
		"email":      email,
		"permission": stored.Permission,
	})

	s.log.Info("grid shared",
		zap.String("grid_id", gridID.String()),
		zap.String("user_id", target.ID.String()),
		zap.String("permission", stored.Permission),
	)

	return &domain.ShareResponse{
		ID:          stored.ID.String(),
		GridID:      stored.GridID.String(),
		UserID:      stored.UserID.String(),
		Email:       target.Email,
		DisplayName: target.DisplayName,
		Permission:  stored.Permission,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}, nil
}

func (s *Service) ListShares(ctx context.Context, userID, gridID snowflake.ID) ([]domain.ShareResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := requireOwner(ctx, s.repo, userID, gridID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListShares(ctx, gridID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ShareResponse, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ShareResponse{
			ID:          item.ID.String(),
			GridID:      item.GridID.String(),
			UserID:      item.UserID.String(),
			Email:       item.Email,
			DisplayName: item.DisplayName,
			Permission:  item.Permission,
			CreatedAt:   item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Service) RevokeShare(ctx context.Context, userID, gridID, targetUserID snowflake.ID) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if targetUserID == 0 {
		return domain.ErrInvalidUser
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := requireOwner(ctx, repo, userID, gridID); err != nil {
			return err
		}
		removed, err := repo.DeleteShare(ctx, gridID, targetUserID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotFound
		}
		return repo.Touch(ctx, gridID, s.clock.Now())
	})
	if err != nil {
		return err
	}

	events.Emit(ctx, s.publisher, s.log, events.GridUnsharedTopic, gridID, map[string]any{
		"grid_id": gridID.String(),
		"user_id": targetUserID.String(),
	})
	s.audit(ctx, gridID, userID, "share.revoked", "user", targetUserID.String(), nil)
	return nil
}

// requireOwner reports Forbidden for unknown grids as well as for grids owned
// by someone else.
func requireOwner(ctx context.Context, repo domain.Repository, userID, gridID snowflake.ID) error {
	grid, err := repo.FindByID(ctx, gridID)
	if err != nil {
		return err
	}
	if grid == nil || grid.OwnerID != userID {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Remove(ctx, key); err != nil {
			s.log.Warn("failed to remove blob", zap.String("object_key", key), zap.Error(err))
		}
	}
}

func (s *Service) audit(ctx context.Context, gridID, actorID snowflake.ID, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, &gridID, &actorID, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func toResponse(g domain.Grid, tier permissiondomain.Tier) *domain.GridResponse {
	return &domain.GridResponse{
		ID:         g.ID.String(),
		OwnerID:    g.OwnerID.String(),
		Name:       g.Name,
		Permission: tier,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}
