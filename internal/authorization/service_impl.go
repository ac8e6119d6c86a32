package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectChannel       = "channel"
	ObjectChannelMember = "channel_member"
)

const (
	ActionChannelView     = "channel.view"
	ActionChannelModerate = "channel.moderate"
	ActionMemberView      = "member.view"
	ActionMemberAdd       = "member.add"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize returns ErrForbidden unless the user's role in the channel grants
// action on object. Callers must not hold an open transaction: grouping rows
// are persisted through the adapter.
func (s *ServiceImpl) Authorize(ctx context.Context, userID, channelID snowflake.ID, object, action string) error {
	allowed, err := s.Allowed(ctx, userID, channelID, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("channel action denied",
			zap.String("user_id", userID.String()),
			zap.String("channel_id", channelID.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Allowed(ctx context.Context, userID, channelID snowflake.ID, object, action string) (bool, error) {
	if userID == 0 {
		return false, ErrInvalidActor
	}
	if channelID == 0 {
		return false, ErrInvalidChannel
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}

	role, err := s.roleForUser(ctx, channelID, userID)
	if errors.Is(err, ErrForbidden) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	domain := fmt.Sprintf("channel:%s", channelID.String())
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return false, err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (s *ServiceImpl) roleForUser(ctx context.Context, channelID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM channel_members
		 WHERE channel_id = ? AND user_id = ?
		 LIMIT 1`,
		channelID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.ToLower(strings.TrimSpace(row.Role))
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject and channel.
func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions
		{"role:member", ObjectChannel, ActionChannelView},
		{"role:member", ObjectChannelMember, ActionMemberView},

		// Admin permissions
		{"role:admin", ObjectChannel, ActionChannelView},
		{"role:admin", ObjectChannel, ActionChannelModerate},
		{"role:admin", ObjectChannelMember, ActionMemberView},
		{"role:admin", ObjectChannelMember, ActionMemberAdd},

		// Owner permissions
		{"role:owner", ObjectChannel, ActionChannelView},
		{"role:owner", ObjectChannel, ActionChannelModerate},
		{"role:owner", ObjectChannelMember, ActionMemberView},
		{"role:owner", ObjectChannelMember, ActionMemberAdd},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
