package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
	"github.com/smallbiznis/tilegrid/internal/events"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
	gridfiledomain "github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the application, in dependency order.
func Models() []any {
	return []any{
		&userdomain.User{},
		&griddomain.Grid{},
		&griddomain.GridShare{},
		&channeldomain.ChannelGroup{},
		&channeldomain.Channel{},
		&channeldomain.ChannelMember{},
		&tiledomain.Tile{},
		&messagedomain.Message{},
		&gridfiledomain.GridFile{},
		&auditdomain.AuditLog{},
		&events.GridEvent{},
	}
}

// RunMigrations applies the embedded SQL migrations against Postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the models on dialects without
// versioned migrations.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
