package migrations

import (
	"github.com/ApexGov/inspector/pkg/infra/database"
	"gorm.io/gorm"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20250301_create_quota_states_table",
		Name: "Create quota_states table for windowed upload quotas",

		Up: func(db *gorm.DB) error {
			if err := db.Exec(`
				CREATE TABLE IF NOT EXISTS quota_states (
					key         TEXT PRIMARY KEY,
					count       INTEGER NOT NULL DEFAULT 0,
					reset_at_ms BIGINT NOT NULL,
					updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`).Error; err != nil {
				return err
			}

			return db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_quota_states_reset_at
				ON quota_states (reset_at_ms);
			`).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP TABLE IF EXISTS quota_states;`).Error
		},
	})
}
