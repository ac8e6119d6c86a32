package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/tilegrid/internal/authorization"
	"github.com/smallbiznis/tilegrid/internal/channel/domain"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/events"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	userservice "github.com/smallbiznis/tilegrid/internal/user/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNameLength  = 80
	maxEmojiLength = 16
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Users     userdomain.Repository
	Authz     authorization.Service
	Limits    *config.LimitsHolder
	Publisher events.Publisher `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	users     userdomain.Repository
	authz     authorization.Service
	limits    *config.LimitsHolder
	publisher events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("channel.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		users:     p.Users,
		authz:     p.Authz,
		limits:    p.Limits,
		publisher: p.Publisher,
	}
}

func (s *Service) CreateChannel(ctx context.Context, userID snowflake.ID, req domain.CreateChannelRequest) (*domain.ChannelResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimPrefix(strings.TrimSpace(req.Name), "#")
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	channelSlug := slug.Make(name)
	if channelSlug == "" {
		return nil, domain.ErrInvalidName
	}
	emoji := strings.TrimSpace(req.Emoji)
	if len(emoji) > maxEmojiLength {
		return nil, domain.ErrInvalidEmoji
	}

	now := s.clock.Now()
	channel := domain.Channel{
		ID:        s.genID.Generate(),
		OwnerID:   userID,
		GroupID:   req.GroupID,
		Name:      name,
		Slug:      channelSlug,
		Emoji:     emoji,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if req.GroupID != nil {
			group, err := repo.FindGroup(ctx, *req.GroupID)
			if err != nil {
				return err
			}
			if group == nil || group.OwnerID != userID {
				return domain.ErrInvalidGroup
			}
		}
		if err := repo.CreateChannel(ctx, channel); err != nil {
			return err
		}
		_, err := repo.AddMember(ctx, domain.ChannelMember{
			ID:        s.genID.Generate(),
			ChannelID: channel.ID,
			UserID:    userID,
			Role:      string(domain.RoleOwner),
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := toChannelResponse(channel)
	resp.Role = domain.RoleOwner
	return &resp, nil
}

func (s *Service) CreateGroup(ctx context.Context, userID snowflake.ID, req domain.CreateGroupRequest) (*domain.GroupResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}

	group := domain.ChannelGroup{
		ID:        s.genID.Generate(),
		OwnerID:   userID,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	return &domain.GroupResponse{
		ID:        group.ID.String(),
		OwnerID:   group.OwnerID.String(),
		Name:      group.Name,
		CreatedAt: group.CreatedAt,
	}, nil
}

func (s *Service) ListChannels(ctx context.Context, userID snowflake.ID) ([]domain.ChannelResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChannelResponse, 0, len(items))
	for _, item := range items {
		resp := toChannelResponse(item.Channel)
		resp.Role = domain.Role(item.Role)
		out = append(out, resp)
	}
	return out, nil
}

func (s *Service) ListMembers(ctx context.Context, userID, channelID snowflake.ID) ([]domain.MemberResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.authorize(ctx, userID, channelID, authorization.ObjectChannelMember, authorization.ActionMemberView); err != nil {
		return nil, err
	}
	items, err := s.repo.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return toMemberResponses(items), nil
}

// AddMembersByEmail adds every address that maps to an account. Existing
// members keep their role.
func (s *Service) AddMembersByEmail(ctx context.Context, userID, channelID snowflake.ID, emails []string) (*domain.AddMembersResult, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	normalized, err := s.normalizeEmails(emails)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, channelID, authorization.ObjectChannelMember, authorization.ActionMemberAdd); err != nil {
		return nil, err
	}

	users, err := s.users.FindByEmails(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}

	matched := make(map[string]struct{}, len(users))
	userIDs := make([]snowflake.ID, 0, len(users))
	for _, u := range users {
		matched[u.Email] = struct{}{}
		userIDs = append(userIDs, u.ID)
	}

	var (
		added   int
		members []domain.MemberListItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.clock.Now()
		for _, id := range userIDs {
			inserted, err := repo.AddMember(ctx, domain.ChannelMember{
				ID:        s.genID.Generate(),
				ChannelID: channelID,
				UserID:    id,
				Role:      string(domain.RoleMember),
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			if inserted {
				added++
			}
		}
		rows, err := repo.ListMembers(ctx, channelID, userIDs...)
		if err != nil {
			return err
		}
		members = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	unmatched := make([]string, 0, len(normalized)-len(matched))
	for _, email := range normalized {
		if _, ok := matched[email]; !ok {
			unmatched = append(unmatched, email)
		}
	}

	if added > 0 {
		events.Emit(ctx, s.publisher, s.log, events.ChannelMembers, channelID, map[string]any{
			"channel_id": channelID.String(),
			"actor_id":   userID.String(),
			"added":      added,
		})
	}

	return &domain.AddMembersResult{
		Members:   toMemberResponses(members),
		Count:     added,
		Unmatched: unmatched,
	}, nil
}

func (s *Service) CanModerate(ctx context.Context, userID, channelID snowflake.ID) (bool, error) {
	if userID == 0 || channelID == 0 {
		return false, nil
	}
	return s.authz.Allowed(ctx, userID, channelID, authorization.ObjectChannel, authorization.ActionChannelModerate)
}

func (s *Service) authorize(ctx context.Context, userID, channelID snowflake.ID, object, action string) error {
	err := s.authz.Authorize(ctx, userID, channelID, object, action)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authorization.ErrInvalidChannel):
		return domain.ErrForbidden
	default:
		return err
	}
}

func (s *Service) normalizeEmails(emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, domain.ErrInvalidEmails
	}
	if len(emails) > s.limits.Get().MaxEmailsPerRequest {
		return nil, domain.ErrInvalidEmails
	}
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, raw := range emails {
		email, err := userservice.NormalizeEmail(raw)
		if err != nil {
			return nil, domain.ErrInvalidEmail
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out, nil
}

func toChannelResponse(c domain.Channel) domain.ChannelResponse {
	resp := domain.ChannelResponse{
		ID:        c.ID.String(),
		OwnerID:   c.OwnerID.String(),
		Name:      c.Name,
		Slug:      c.Slug,
		Emoji:     c.Emoji,
		CreatedAt: c.CreatedAt,
	}
	if c.GroupID != nil {
		id := c.GroupID.String()
		resp.GroupID = &id
	}
	return resp
}

func toMemberResponses(items []domain.MemberListItem) []domain.MemberResponse {
	out := make([]domain.MemberResponse, 0, len(items))
	for _, item := range items {
		out = append(out, domain.MemberResponse{
			UserID:      item.UserID.String(),
			Email:       item.Email,
			DisplayName: item.DisplayName,
			Role:        domain.Role(item.Role),
			CreatedAt:   item.CreatedAt,
		})
	}
	return out
}
