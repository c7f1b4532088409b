package migration

import (
	"github.com/smallbiznis/mina/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func run(cfg config.Config, gdb *gorm.DB, log *zap.Logger) error {
	// The migrate postgres driver only speaks postgres; sqlite setups (tests,
	// local scratch databases) create schema themselves.
	if cfg.DBType != "postgres" {
		log.Info("skipping migrations", zap.String("db_type", cfg.DBType))
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

// Module applies schema migrations on startup.
var Module = fx.Module("migration",
	fx.Invoke(run),
)
