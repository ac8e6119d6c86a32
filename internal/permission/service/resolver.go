package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/observability/metrics"
	"github.com/smallbiznis/tilegrid/internal/permission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type resolver struct {
	repo    domain.Repository
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewResolver(p Params) domain.Resolver {
	return &resolver{
		repo:    p.Repo,
		log:     p.Log.Named("permission.resolver"),
		metrics: p.Metrics,
	}
}

func (r *resolver) WithTx(tx *gorm.DB) domain.Resolver {
	return &resolver{
		repo:    r.repo.WithTx(tx),
		log:     r.log,
		metrics: r.metrics,
	}
}

func (r *resolver) Resolve(ctx context.Context, userID, gridID snowflake.ID) (domain.Tier, error) {
	tiers, err := r.ResolveMany(ctx, userID, []snowflake.ID{gridID})
	if err != nil {
		return domain.TierNone, err
	}
	return tiers[gridID], nil
}

// ResolveMany applies, per grid: missing grid is none, the owner is edit
// regardless of any share row, otherwise the share row decides and a
// missing row is none.
func (r *resolver) ResolveMany(ctx context.Context, userID snowflake.ID, gridIDs []snowflake.ID) (map[snowflake.ID]domain.Tier, error) {
	ids := dedupe(gridIDs)
	tiers := make(map[snowflake.ID]domain.Tier, len(ids))
	for _, id := range ids {
		tiers[id] = domain.TierNone
	}
	if userID == 0 || len(ids) == 0 {
		return tiers, nil
	}

	owners, err := r.repo.GridOwners(ctx, ids)
	if err != nil {
		return nil, err
	}

	pending := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		ownerID, ok := owners[id]
		switch {
		case !ok:
		case ownerID == userID:
			tiers[id] = domain.TierEdit
		default:
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return tiers, nil
	}

	perms, err := r.repo.SharePermissions(ctx, userID, pending)
	if err != nil {
		return nil, err
	}
	for _, id := range pending {
		raw, ok := perms[id]
		if !ok {
			continue
		}
		if tier, _ := domain.ParseShareTier(raw); tier == domain.TierEdit {
			tiers[id] = domain.TierEdit
		} else {
			tiers[id] = domain.TierView
		}
	}
	return tiers, nil
}

func (r *resolver) CanView(ctx context.Context, userID, gridID snowflake.ID) (bool, error) {
	return r.check(ctx, userID, gridID, domain.TierView)
}

func (r *resolver) CanEdit(ctx context.Context, userID, gridID snowflake.ID) (bool, error) {
	return r.check(ctx, userID, gridID, domain.TierEdit)
}

func (r *resolver) check(ctx context.Context, userID, gridID snowflake.ID, required domain.Tier) (bool, error) {
	tier, err := r.Resolve(ctx, userID, gridID)
	if err != nil {
		return false, err
	}
	allowed := tier.Satisfies(required)
	r.metrics.RecordAccessDecision(ctx, string(required), allowed)
	return allowed, nil
}

func (r *resolver) Require(ctx context.Context, userID snowflake.ID, required domain.Tier, gridIDs ...snowflake.ID) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if len(gridIDs) == 0 {
		return domain.ErrForbidden
	}
	tiers, err := r.ResolveMany(ctx, userID, gridIDs)
	if err != nil {
		return err
	}
	for gridID, tier := range tiers {
		if !tier.Satisfies(required) {
			r.metrics.RecordAccessDecision(ctx, string(required), false)
			r.log.Debug("access denied",
				zap.String("user_id", userID.String()),
				zap.String("grid_id", gridID.String()),
				zap.String("required", string(required)),
				zap.String("tier", string(tier)),
			)
			return domain.ErrForbidden
		}
	}
	r.metrics.RecordAccessDecision(ctx, string(required), true)
	return nil
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
