package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/logging"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Migration is a single embedded SQL file
type Migration struct {
	Name    string
	Content string
}

// Migrator applies embedded SQL migrations in lexical order
type Migrator struct {
	db     *sql.DB
	files  fs.FS
	logger *zap.Logger
}

// NewMigrator creates a Migrator over the embedded migration files
func NewMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, files: embeddedMigrations, logger: logging.OrNop(logger)}
}

// Apply runs every pending migration inside one transaction and returns the
// names it applied.
func (m *Migrator) Apply(ctx context.Context) ([]string, error) {
	migrations, err := loadMigrations(m.files)
	if err != nil {
		return nil, err
	}

	var applied []string
	err = WithTx(ctx, m.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migrationsTable); err != nil {
			return fmt.Errorf("failed to create schema_migrations: %w", err)
		}

		done, err := appliedNames(ctx, tx)
		if err != nil {
			return err
		}

		for _, mig := range migrations {
			if done[mig.Name] {
				continue
			}
			if _, err := tx.ExecContext(ctx, mig.Content); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, mig.Name); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig.Name, err)
			}
			m.logger.Info("applied migration", zap.String("migration", mig.Name))
			applied = append(applied, mig.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// Pending returns the names of migrations not yet applied
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	migrations, err := loadMigrations(m.files)
	if err != nil {
		return nil, err
	}

	if _, err := m.db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	done, err := appliedNames(ctx, m.db)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, mig := range migrations {
		if !done[mig.Name] {
			pending = append(pending, mig.Name)
		}
	}
	return pending, nil
}

func appliedNames(ctx context.Context, q Querier) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration name: %w", err)
		}
		done[name] = true
	}
	return done, rows.Err()
}

func loadMigrations(files fs.FS) ([]Migration, error) {
	entries, err := fs.Glob(files, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(entries)

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		content, err := fs.ReadFile(files, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		migrations = append(migrations, Migration{
			Name:    path.Base(entry),
			Content: string(content),
		})
	}
	return migrations, nil
}
