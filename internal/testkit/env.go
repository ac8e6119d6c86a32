// Package testkit assembles the services over an in-memory database the same
// way the fx graph does, for tests that cross package boundaries.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	auditrepository "github.com/smallbiznis/tilegrid/internal/audit/repository"
	auditservice "github.com/smallbiznis/tilegrid/internal/audit/service"
	"github.com/smallbiznis/tilegrid/internal/authorization"
	"github.com/smallbiznis/tilegrid/internal/blobstore"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
	channelrepository "github.com/smallbiznis/tilegrid/internal/channel/repository"
	channelservice "github.com/smallbiznis/tilegrid/internal/channel/service"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/events"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
	gridrepository "github.com/smallbiznis/tilegrid/internal/grid/repository"
	gridservice "github.com/smallbiznis/tilegrid/internal/grid/service"
	gridfiledomain "github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	gridfilerepository "github.com/smallbiznis/tilegrid/internal/gridfile/repository"
	gridfileservice "github.com/smallbiznis/tilegrid/internal/gridfile/service"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	messagerepository "github.com/smallbiznis/tilegrid/internal/message/repository"
	messageservice "github.com/smallbiznis/tilegrid/internal/message/service"
	"github.com/smallbiznis/tilegrid/internal/migration"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	permissionrepository "github.com/smallbiznis/tilegrid/internal/permission/repository"
	permissionservice "github.com/smallbiznis/tilegrid/internal/permission/service"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	tilerepository "github.com/smallbiznis/tilegrid/internal/tile/repository"
	tileservice "github.com/smallbiznis/tilegrid/internal/tile/service"
	"github.com/smallbiznis/tilegrid/internal/tilegate"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	userrepository "github.com/smallbiznis/tilegrid/internal/user/repository"
	userservice "github.com/smallbiznis/tilegrid/internal/user/service"
	dbpkg "github.com/smallbiznis/tilegrid/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the starting time of every Env clock.
var Epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type Env struct {
	DB     *gorm.DB
	Node   *snowflake.Node
	Clock  *clock.FakeClock
	Log    *zap.Logger
	Limits *config.LimitsHolder
	Blobs  *blobstore.MemoryStore

	Publisher events.Publisher
	Audit     auditdomain.Service
	Resolver  permissiondomain.Resolver
	Authz     authorization.Service
	Gate      tilegate.Gate

	UserRepo userdomain.Repository
	TileRepo tiledomain.Repository

	Users    userdomain.Service
	Grids    griddomain.Service
	Tiles    tiledomain.Service
	Channels channeldomain.Service
	Messages messagedomain.Service
	Files    gridfiledomain.Service
}

func New(t testing.TB) *Env {
	t.Helper()

	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := migration.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("create id generator: %v", err)
	}

	env := &Env{
		DB:     conn,
		Node:   node,
		Clock:  clock.NewFakeClock(Epoch),
		Log:    zap.NewNop(),
		Limits: config.NewStaticLimits(config.DefaultLimitsConfig()),
		Blobs:  blobstore.NewMemoryStore(),
	}
	env.Publisher = events.NewOutboxPublisher(conn, node, env.Clock)

	grants := permissionrepository.NewRepository(conn)
	env.Resolver = permissionservice.NewResolver(permissionservice.Params{Repo: grants, Log: env.Log})
	env.Audit = auditservice.NewService(auditservice.Params{
		DB:     conn,
		Log:    env.Log,
		GenID:  node,
		Clock:  env.Clock,
		Repo:   auditrepository.NewRepository(),
		Grants: grants,
	})

	enforcer, err := authorization.NewEnforcer(conn)
	if err != nil {
		t.Fatalf("create enforcer: %v", err)
	}
	env.Authz = authorization.NewService(authorization.Params{
		DB:       conn,
		Log:      env.Log,
		Enforcer: enforcer,
	})

	env.UserRepo = userrepository.NewRepository(conn)
	env.TileRepo = tilerepository.NewRepository(conn)
	env.Gate = tilegate.New(tilegate.Params{Log: env.Log, Tiles: env.TileRepo, Resolver: env.Resolver})

	env.Tiles = tileservice.NewService(tileservice.Params{
		DB:        conn,
		Log:       env.Log,
		GenID:     node,
		Clock:     env.Clock,
		Repo:      env.TileRepo,
		Resolver:  env.Resolver,
		Limits:    env.Limits,
		Authz:     env.Authz,
		Channels:  channelrepository.NewChannelLookup(conn),
		Publisher: env.Publisher,
		AuditSvc:  env.Audit,
	})
	env.Grids = gridservice.NewService(gridservice.Params{
		DB:        conn,
		Log:       env.Log,
		GenID:     node,
		Clock:     env.Clock,
		Repo:      gridrepository.NewRepository(conn),
		Users:     env.UserRepo,
		Resolver:  env.Resolver,
		Tiles:     env.Tiles,
		Publisher: env.Publisher,
		AuditSvc:  env.Audit,
		Blobs:     env.Blobs,
	})
	env.Users = userservice.NewService(userservice.Params{
		DB:       conn,
		Log:      env.Log,
		Clock:    env.Clock,
		Repo:     env.UserRepo,
		Grids:    env.Grids,
		AuditSvc: env.Audit,
	})
	env.Channels = channelservice.NewService(channelservice.Params{
		DB:        conn,
		Log:       env.Log,
		GenID:     node,
		Clock:     env.Clock,
		Repo:      channelrepository.NewRepository(conn),
		Users:     env.UserRepo,
		Authz:     env.Authz,
		Limits:    env.Limits,
		Publisher: env.Publisher,
	})
	env.Messages = messageservice.NewService(messageservice.Params{
		Log:    env.Log,
		GenID:  node,
		Clock:  env.Clock,
		Repo:   messagerepository.NewRepository(conn),
		Gate:   env.Gate,
		Limits: env.Limits,
	})
	env.Files = gridfileservice.NewService(gridfileservice.Params{
		Log:      env.Log,
		GenID:    node,
		Clock:    env.Clock,
		Cfg:      config.Config{},
		Repo:     gridfilerepository.NewRepository(conn),
		Gate:     env.Gate,
		Blobs:    env.Blobs,
		Limits:   env.Limits,
		AuditSvc: env.Audit,
	})
	return env
}

// User provisions an account, which also creates its default grid.
func (e *Env) User(t testing.TB, email string) userdomain.User {
	t.Helper()
	res, err := e.Users.Provision(context.Background(), userdomain.ProvisionRequest{
		ID:    e.Node.Generate(),
		Email: email,
	})
	if err != nil {
		t.Fatalf("provision %s: %v", email, err)
	}
	return res.User
}

// Grid creates a grid owned by ownerID with the default tiles.
func (e *Env) Grid(t testing.TB, ownerID snowflake.ID, name string) snowflake.ID {
	t.Helper()
	g, err := e.Grids.Create(context.Background(), ownerID, griddomain.CreateGridRequest{Name: name})
	if err != nil {
		t.Fatalf("create grid %s: %v", name, err)
	}
	id, err := snowflake.ParseString(g.ID)
	if err != nil {
		t.Fatalf("parse grid id: %v", err)
	}
	return id
}

// Share grants target a tier on the grid as its owner.
func (e *Env) Share(t testing.TB, ownerID, gridID snowflake.ID, email, permission string) {
	t.Helper()
	if _, err := e.Grids.CreateShare(context.Background(), ownerID, gridID, griddomain.CreateShareRequest{
		Email:      email,
		Permission: permission,
	}); err != nil {
		t.Fatalf("share grid with %s: %v", email, err)
	}
}

// TilesOf returns the tiles of a grid straight from storage, hidden included.
func (e *Env) TilesOf(t testing.TB, gridID snowflake.ID) []tiledomain.Tile {
	t.Helper()
	tiles, err := e.TileRepo.ListByGrid(context.Background(), gridID, true)
	if err != nil {
		t.Fatalf("list tiles: %v", err)
	}
	return tiles
}
