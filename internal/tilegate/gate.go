// Package tilegate is the single authorization choke point for resources
// nested under tiles (messages) and grids (files).
package tilegate

import (
	"context"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Gate interface {
	CanAccessTileResource(ctx context.Context, userID, tileID snowflake.ID) (bool, error)
	CanEditTileResource(ctx context.Context, userID, tileID snowflake.ID) (bool, error)
	CanViewGrid(ctx context.Context, userID, gridID snowflake.ID) (bool, error)
	CanEditGrid(ctx context.Context, userID, gridID snowflake.ID) (bool, error)

	// RequireTile returns the tile's grid when the user holds required on it.
	RequireTile(ctx context.Context, userID, tileID snowflake.ID, required permissiondomain.Tier) (snowflake.ID, error)
	RequireGrid(ctx context.Context, userID, gridID snowflake.ID, required permissiondomain.Tier) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Tiles    tiledomain.Repository
	Resolver permissiondomain.Resolver
}

type gate struct {
	log      *zap.Logger
	tiles    tiledomain.Repository
	resolver permissiondomain.Resolver
}

func New(p Params) Gate {
	return &gate{
		log:      p.Log.Named("tilegate"),
		tiles:    p.Tiles,
		resolver: p.Resolver,
	}
}

func (g *gate) CanAccessTileResource(ctx context.Context, userID, tileID snowflake.ID) (bool, error) {
	return g.tileAllowed(ctx, userID, tileID, permissiondomain.TierView)
}

func (g *gate) CanEditTileResource(ctx context.Context, userID, tileID snowflake.ID) (bool, error) {
	return g.tileAllowed(ctx, userID, tileID, permissiondomain.TierEdit)
}

func (g *gate) CanViewGrid(ctx context.Context, userID, gridID snowflake.ID) (bool, error) {
	return g.resolver.CanView(ctx, userID, gridID)
}

func (g *gate) CanEditGrid(ctx context.Context, userID, gridID snowflake.ID) (bool, error) {
	return g.resolver.CanEdit(ctx, userID, gridID)
}

func (g *gate) RequireTile(ctx context.Context, userID, tileID snowflake.ID, required permissiondomain.Tier) (snowflake.ID, error) {
	if userID == 0 {
		return 0, permissiondomain.ErrUnauthenticated
	}
	tile, err := g.tiles.FindByID(ctx, tileID)
	if err != nil {
		return 0, err
	}
	// An unknown tile is indistinguishable from one the user cannot reach.
	if tile == nil {
		return 0, permissiondomain.ErrForbidden
	}
	if err := g.resolver.Require(ctx, userID, required, tile.GridID); err != nil {
		return 0, err
	}
	return tile.GridID, nil
}

func (g *gate) RequireGrid(ctx context.Context, userID, gridID snowflake.ID, required permissiondomain.Tier) error {
	return g.resolver.Require(ctx, userID, required, gridID)
}

func (g *gate) tileAllowed(ctx context.Context, userID, tileID snowflake.ID, required permissiondomain.Tier) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	tile, err := g.tiles.FindByID(ctx, tileID)
	if err != nil {
		return false, err
	}
	if tile == nil {
		return false, nil
	}
	if required == permissiondomain.TierEdit {
		return g.resolver.CanEdit(ctx, userID, tile.GridID)
	}
	return g.resolver.CanView(ctx, userID, tile.GridID)
}
