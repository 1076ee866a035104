package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"time"

	"zapcommerce/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// availableVersions lists the embedded migration versions (filenames) in
// deterministic apply order
func availableVersions() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// pendingVersions diffs the available migration set against the applied
// ledger. Order is preserved from available, which is already sorted.
func pendingVersions(available, applied []string) []string {
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	pending := make([]string, 0)
	for _, v := range available {
		if !done[v] {
			pending = append(pending, v)
		}
	}
	return pending
}

// ApplyMigrations applies all pending versioned migrations, recording each
// attempt in the schema_migrations ledger. Re-running an applied migration
// is a no-op; a failed migration is recorded with its error message and
// halts the run so later migrations never apply on top of a broken schema.
func ApplyMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations ledger: %w", err)
	}

	if err := consolidateLegacyLedger(db); err != nil {
		log.Warn().Err(err).Msg("Legacy migration ledger consolidation skipped")
	}

	available, err := availableVersions()
	if err != nil {
		return err
	}

	var applied []string
	if err := db.Model(&models.SchemaMigration{}).
		Where("success = ?", true).
		Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	pending := pendingVersions(available, applied)
	if len(pending) == 0 {
		log.Info().Msg("No pending migrations")
		return nil
	}

	for _, version := range pending {
		sql, err := migrationFiles.ReadFile("migrations/" + version)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", version, err)
		}

		log.Info().Str("version", version).Msg("Applying migration")

		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.Exec(string(sql)).Error
		})
		if err != nil {
			record := models.SchemaMigration{
				Version:   version,
				AppliedAt: time.Now(),
				Success:   false,
				Error:     err.Error(),
			}
			if recErr := db.Create(&record).Error; recErr != nil {
				log.Error().Err(recErr).Str("version", version).Msg("Failed to record migration failure")
			}
			return fmt.Errorf("migration %s failed: %w", version, err)
		}

		record := models.SchemaMigration{Version: version, AppliedAt: time.Now(), Success: true}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
	}

	log.Info().Int("count", len(pending)).Msg("Migrations applied")
	return nil
}

// consolidateLegacyLedger unifies a legacy "migrations" tracking table into
// the canonical schema_migrations ledger. Records are copied forward keeping
// the earliest timestamp per version, and the legacy table is renamed rather
// than dropped so a rollback path survives.
func consolidateLegacyLedger(db *gorm.DB) error {
	var legacy sql.NullString
	if err := db.Raw("SELECT to_regclass('public.migrations')::text").Scan(&legacy).Error; err != nil {
		return err
	}
	if !legacy.Valid || legacy.String == "" {
		return nil
	}

	log.Info().Msg("Consolidating legacy migrations ledger")

	copyForward := `
		INSERT INTO schema_migrations (id, version, applied_at, success)
		SELECT gen_random_uuid(), m.name, MIN(m.run_on), true
		FROM migrations m
		GROUP BY m.name
		ON CONFLICT (version) DO NOTHING`
	if err := db.Exec(copyForward).Error; err != nil {
		return fmt.Errorf("failed to copy legacy ledger forward: %w", err)
	}

	if err := db.Exec(`ALTER TABLE migrations RENAME TO migrations_legacy`).Error; err != nil {
		return fmt.Errorf("failed to rename legacy ledger: %w", err)
	}

	return nil
}
