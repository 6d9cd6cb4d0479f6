package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	bootstrapStatusActive       = "active"
	bootstrapStatusInitializing = "initializing"
)

func writeBootstrapState(ctx context.Context, db *sql.DB, status string, m Manifest) error {
	now := time.Now().UTC()
	var activatedAt any
	if status == bootstrapStatusActive {
		activatedAt = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO system_bootstrap_state (id, status, schema_version, checksum, activated_at, created_at)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    activated_at = EXCLUDED.activated_at
	`, status, m.SchemaVersion(), m.Checksum, activatedAt, now)
	if err != nil {
		return fmt.Errorf("write system bootstrap state %s: %w", status, err)
	}
	return nil
}
