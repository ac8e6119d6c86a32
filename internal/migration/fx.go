package migration

import (
	"github.com/smallbiznis/tilegrid/internal/config"
	dbpkg "github.com/smallbiznis/tilegrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if dbpkg.ConfigFrom(cfg).Type != dbpkg.DialectPostgres {
			log.Info("applying schema with auto migrate", zap.String("dialect", conn.Dialector.Name()))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
