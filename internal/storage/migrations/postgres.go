package migrations

import (
	"context"
	"fmt"

	"token-risk-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded verdict schema.
// Every file uses IF NOT EXISTS, so reruns on startup are harmless.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
