package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// The full SUKL attribute set is stored as explicit text columns. Values
// arrive as strings from the upstream API and are kept verbatim; typed
// interpretation belongs to downstream stages.
var steps = []migrationStep{
	{
		Name: "create_table_drugs",
		SQL: `CREATE TABLE IF NOT EXISTS drugs (
  sukl_code           VARCHAR(20)  PRIMARY KEY,
  name                VARCHAR(500),
  strength            VARCHAR(100),
  dosage_form         VARCHAR(100),
  package             VARCHAR(50),
  route               VARCHAR(50),
  supplement          TEXT,
  container           VARCHAR(50),
  holder              VARCHAR(100),
  holder_country      VARCHAR(50),
  registration_status VARCHAR(10),
  atc_code            VARCHAR(20),
  registration_number VARCHAR(100),
  ddd_amount          VARCHAR(20),
  ddd_unit            VARCHAR(10),
  ddd_per_package     VARCHAR(20),
  dispensing_mode     VARCHAR(10),
  expiration          VARCHAR(20),
  expiration_unit     VARCHAR(10),
  registered_name     VARCHAR(500),
  safety_features     VARCHAR(10),
  package_language    VARCHAR(10),
  registration_date   VARCHAR(20),
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id          BIGSERIAL   PRIMARY KEY,
  sukl_code   VARCHAR(20) NOT NULL REFERENCES drugs(sukl_code),
  document_id VARCHAR(20) NOT NULL,
  doc_type    VARCHAR(50),
  file_name   VARCHAR(500),
  pdf_data    BYTEA       NOT NULL,
  pdf_size    INTEGER     NOT NULL CHECK (pdf_size >= 0),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (sukl_code, document_id)
);`,
	},
	{
		Name: "create_index_drugs_atc_code",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_drugs_atc_code ON drugs (atc_code);`,
	},
	{
		Name: "create_index_documents_sukl_code",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_sukl_code ON documents (sukl_code);`,
	},
}

// EnsureMigrated checks if the 'drugs' table exists and runs migrations if it doesn't.
// It never drops existing tables; reruns over a populated database must stay resumable.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.drugs') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			"event", "db_migration_skip",
			"duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed",
				"event", "db_migration_failed",
				"migration_step", step.Name,
				"error", err.Error())
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration step applied",
			"event", "db_migration_step",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("schema created",
		"event", "db_migration_success",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
