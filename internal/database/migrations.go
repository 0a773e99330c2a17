package database

import (
	"errors"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/models"
)

const sweepIndexName = "idx_nda_requests_status_expiry"

// Migrate applies the versioned schema migrations in order.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202610170001_create_nda_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.Pitch{},
					&models.NDARequest{},
					&models.NDA{},
					&models.NDAAuditLog{},
					&models.PitchAccess{},
					&models.Notification{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"notifications",
					"pitch_access",
					"nda_audit_log",
					"ndas",
					"nda_requests",
					"pitches",
				)
			},
		},
		{
			ID: "202610170002_index_request_sweep",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&models.NDARequest{}, sweepIndexName) {
					return nil
				}
				return tx.Exec("CREATE INDEX " + sweepIndexName + " ON nda_requests (status, expires_at)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&models.NDARequest{}, sweepIndexName)
			},
		},
		{
			ID: "202610170003_create_rate_limit_counters",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.RateCounter{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("rate_limit_counters")
			},
		},
	}
}
