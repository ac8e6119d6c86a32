package service

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/blobstore"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/internal/tilegate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	maxNameLength      = 255
	defaultContentType = "application/octet-stream"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Cfg      config.Config
	Repo     domain.Repository
	Gate     tilegate.Gate
	Blobs    blobstore.Store
	Limits   *config.LimitsHolder
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	presignTTL time.Duration
	repo       domain.Repository
	gate       tilegate.Gate
	blobs      blobstore.Store
	limits     *config.LimitsHolder
	auditSvc   auditdomain.Service
}

func NewService(p Params) domain.Service {
	ttl := p.Cfg.Blob.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		log:        p.Log.Named("gridfile.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		presignTTL: ttl,
		repo:       p.Repo,
		gate:       p.Gate,
		blobs:      p.Blobs,
		limits:     p.Limits,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) Register(ctx context.Context, userID, gridID snowflake.ID, req domain.RegisterRequest) (*domain.FileResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if gridID == 0 {
		return nil, domain.ErrInvalidGrid
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength || strings.ContainsAny(name, "/\\") {
		return nil, domain.ErrInvalidName
	}
	contentType, err := normalizeContentType(req.ContentType)
	if err != nil {
		return nil, err
	}
	if req.SizeBytes <= 0 || req.SizeBytes > s.limits.Get().MaxFileBytes {
		return nil, domain.ErrInvalidSize
	}

	if err := s.gate.RequireGrid(ctx, userID, gridID, permissiondomain.TierEdit); err != nil {
		return nil, err
	}

	file := domain.GridFile{
		ID:          s.genID.Generate(),
		GridID:      gridID,
		UploaderID:  userID,
		Name:        name,
		ContentType: contentType,
		SizeBytes:   req.SizeBytes,
		ObjectKey:   fmt.Sprintf("grids/%s/%s", gridID.String(), ulid.Make().String()),
		CreatedAt:   s.clock.Now(),
	}

	uploadURL, err := s.blobs.PresignPut(ctx, file.ObjectKey, contentType, s.presignTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, file); err != nil {
		return nil, err
	}

	resp := toResponse(file)
	resp.UploadURL = uploadURL
	return &resp, nil
}

func (s *Service) List(ctx context.Context, userID, gridID snowflake.ID) ([]domain.FileResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.gate.RequireGrid(ctx, userID, gridID, permissiondomain.TierView); err != nil {
		return nil, err
	}
	files, err := s.repo.ListByGrid(ctx, gridID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toResponse(f))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID, fileID snowflake.ID) (*domain.FileResponse, error) {
	file, err := s.authorizedFile(ctx, userID, fileID, permissiondomain.TierView)
	if err != nil {
		return nil, err
	}
	downloadURL, err := s.blobs.PresignGet(ctx, file.ObjectKey, s.presignTTL)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*file)
	resp.DownloadURL = downloadURL
	return &resp, nil
}

// Delete removes the row first; a failed blob removal leaves an orphan
// object rather than a row pointing at nothing.
func (s *Service) Delete(ctx context.Context, userID, fileID snowflake.ID) error {
	file, err := s.authorizedFile(ctx, userID, fileID, permissiondomain.TierEdit)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, file.ID); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, file.ObjectKey); err != nil {
		s.log.Warn("failed to remove blob", zap.String("object_key", file.ObjectKey), zap.Error(err))
	}

	if s.auditSvc != nil {
		targetID := file.ID.String()
		if err := s.auditSvc.AuditLog(ctx, &file.GridID, &userID, "file.deleted", "grid_file", &targetID, map[string]any{
			"name": file.Name,
		}); err != nil {
			s.log.Warn("failed to write audit log", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) authorizedFile(ctx context.Context, userID, fileID snowflake.ID, required permissiondomain.Tier) (*domain.GridFile, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if fileID == 0 {
		return nil, domain.ErrInvalidFile
	}
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, domain.ErrForbidden
	}
	if err := s.gate.RequireGrid(ctx, userID, file.GridID, required); err != nil {
		return nil, err
	}
	return file, nil
}

func normalizeContentType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultContentType, nil
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", domain.ErrInvalidContentType
	}
	return mediaType, nil
}

func toResponse(f domain.GridFile) domain.FileResponse {
	return domain.FileResponse{
		ID:          f.ID.String(),
		GridID:      f.GridID.String(),
		UploaderID:  f.UploaderID.String(),
		Name:        f.Name,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		CreatedAt:   f.CreatedAt,
	}
}
