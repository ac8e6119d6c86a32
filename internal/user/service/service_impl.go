package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/ratelimit"
	"github.com/smallbiznis/tilegrid/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Grids    domain.GridProvisioner
	AuditSvc auditdomain.Service `optional:"true"`
	Locker   *ratelimit.Locker   `optional:"true"`
}

const (
	adminLockKey = "users:admin:change"
	adminLockTTL = 10 * time.Second
)

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	grids    domain.GridProvisioner
	auditSvc auditdomain.Service
	locker   *ratelimit.Locker
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		grids:    p.Grids,
		auditSvc: p.AuditSvc,
		locker:   p.Locker,
	}
}

func (s *service) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.ProvisionResult, error) {
	if req.ID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.ProvisionResult{User: *existing, Created: false}, nil
	}

	now := s.clock.Now()
	user := domain.User{
		ID:          req.ID,
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user.DisplayName == "" {
		user.DisplayName = strings.SplitN(email, "@", 2)[0]
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		if s.grids == nil {
			return nil
		}
		return s.grids.ProvisionDefault(ctx, tx, user.ID)
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		// A concurrent request for the same identity may have won the insert.
		if raced, findErr := s.repo.FindByID(ctx, req.ID); findErr == nil && raced != nil {
			return &domain.ProvisionResult{User: *raced, Created: false}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("user provisioned", zap.String("user_id", user.ID.String()))
	return &domain.ProvisionResult{User: user, Created: true}, nil
}

func (s *service) Get(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) SetAdmin(ctx context.Context, actorID, targetID snowflake.ID, isAdmin bool) (*domain.User, error) {
	if actorID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if targetID == 0 {
		return nil, domain.ErrInvalidUser
	}

	// Admin changes are serialized across instances when redis is available;
	// otherwise two concurrent bootstraps may both succeed.
	var updated *domain.User
	err := s.locker.Guard(ctx, adminLockKey, adminLockTTL, func(ctx context.Context) error {
		var err error
		updated, err = s.setAdmin(ctx, actorID, targetID, isAdmin)
		return err
	})
	if errors.Is(err, ratelimit.ErrLockHeld) {
		return nil, domain.ErrAdminBusy
	}
	return updated, err
}

func (s *service) setAdmin(ctx context.Context, actorID, targetID snowflake.ID, isAdmin bool) (*domain.User, error) {
	var updated *domain.User
	var bootstrap bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		admins, err := repo.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins > 0 {
			actor, err := repo.FindByID(ctx, actorID)
			if err != nil {
				return err
			}
			if actor == nil || !actor.IsAdmin {
				return domain.ErrForbidden
			}
		}
		bootstrap = admins == 0

		target, err := repo.FindByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := repo.SetAdmin(ctx, targetID, isAdmin, now); err != nil {
			return err
		}
		target.IsAdmin = isAdmin
		target.UpdatedAt = now
		updated = target
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.log.Info("admin change denied",
				zap.String("actor_id", actorID.String()),
				zap.String("target_id", targetID.String()),
			)
		}
		return nil, err
	}

	s.audit(ctx, actorID, "admin.changed", targetID, map[string]any{
		"is_admin":  isAdmin,
		"bootstrap": bootstrap,
	})
	return updated, nil
}

func (s *service) audit(ctx context.Context, actorID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, nil, &actorID, action, "user", &target, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// NormalizeEmail lower-cases and validates a single address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > 320 {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
