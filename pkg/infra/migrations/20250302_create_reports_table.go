package migrations

import (
	"github.com/ApexGov/inspector/pkg/infra/database"
	"gorm.io/gorm"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20250302_create_reports_table",
		Name: "Create reports table for citation reports",

		Up: func(db *gorm.DB) error {
			if err := db.Exec(`
				CREATE TABLE IF NOT EXISTS reports (
					id                UUID PRIMARY KEY,
					report_number     TEXT NOT NULL UNIQUE,
					client_id         TEXT,
					result            JSONB NOT NULL,
					total_fine        NUMERIC(14,2) NOT NULL DEFAULT 0,
					fuzzy_latitude    DOUBLE PRECISION,
					fuzzy_longitude   DOUBLE PRECISION,
					location_label    TEXT,
					evidence_url      TEXT,
					source            TEXT NOT NULL,
					created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`).Error; err != nil {
				return err
			}

			return db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_reports_created_at
				ON reports (created_at);
			`).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP TABLE IF EXISTS reports;`).Error
		},
	})
}
