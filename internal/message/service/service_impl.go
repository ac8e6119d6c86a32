package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/message/domain"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/internal/tilegate"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Gate   tilegate.Gate
	Limits *config.LimitsHolder
}

type Service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	gate   tilegate.Gate
	limits *config.LimitsHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("message.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		gate:   p.Gate,
		limits: p.Limits,
	}
}

func (s *Service) Post(ctx context.Context, userID, tileID snowflake.ID, req domain.PostRequest) (*domain.MessageResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if tileID == 0 {
		return nil, domain.ErrInvalidTile
	}
	if req.Ciphertext == "" || len(req.Ciphertext) > s.limits.Get().MaxMessageBytes {
		return nil, domain.ErrInvalidCiphertext
	}
	if _, err := s.gate.RequireTile(ctx, userID, tileID, permissiondomain.TierView); err != nil {
		return nil, err
	}

	msg := domain.Message{
		ID:         s.genID.Generate(),
		TileID:     tileID,
		AuthorID:   userID,
		Ciphertext: req.Ciphertext,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, msg); err != nil {
		return nil, err
	}
	resp := toResponse(msg)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, userID, tileID snowflake.ID, req domain.ListRequest) (*domain.ListResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if tileID == 0 {
		return nil, domain.ErrInvalidTile
	}

	var after *domain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(pagination.CreatedAtFormat, decoded.CreatedAt)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidPageToken
		}
		after = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	if _, err := s.gate.RequireTile(ctx, userID, tileID, permissiondomain.TierView); err != nil {
		return nil, err
	}

	pageSize := req.Size()
	items, err := s.repo.List(ctx, domain.ListFilter{
		TileID: tileID,
		After:  after,
		Limit:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	page, info := pagination.BuildCursorPageInfo(items, pageSize, func(m domain.Message) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        m.ID.String(),
			CreatedAt: m.CreatedAt.UTC().Format(pagination.CreatedAtFormat),
		})
		if err != nil {
			return ""
		}
		return token
	})

	out := make([]domain.MessageResponse, 0, len(page))
	for _, m := range page {
		out = append(out, toResponse(m))
	}
	return &domain.ListResponse{PageInfo: info, Messages: out}, nil
}

func toResponse(m domain.Message) domain.MessageResponse {
	return domain.MessageResponse{
		ID:         m.ID.String(),
		TileID:     m.TileID.String(),
		AuthorID:   m.AuthorID.String(),
		Ciphertext: m.Ciphertext,
		CreatedAt:  m.CreatedAt,
	}
}
