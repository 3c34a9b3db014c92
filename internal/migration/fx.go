package migration

import (
	"github.com/uplinehq/upline/internal/config"
	earningdomain "github.com/uplinehq/upline/internal/earning/domain"
	memberdomain "github.com/uplinehq/upline/internal/member/domain"
	paymentdomain "github.com/uplinehq/upline/internal/payment/domain"
	codedomain "github.com/uplinehq/upline/internal/referralcode/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Versioned migrations target postgres; sqlite and mysql dev setups
		// fall back to schema sync.
		return conn.AutoMigrate(
			&memberdomain.Member{},
			&codedomain.ReferralCode{},
			&paymentdomain.Payment{},
			&earningdomain.Earning{},
		)
	}),
)
