package migration

import (
	auditdomain "github.com/smallbiznis/payflow/internal/audit/domain"
	"github.com/smallbiznis/payflow/internal/config"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations are written for postgres; other dialects
		// (sqlite in development and tests) take the schema from the models.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&orderdomain.Order{},
				&orderdomain.OrderNote{},
				&auditdomain.AuditLog{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
