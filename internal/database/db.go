package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/smukkama/wind-alert-bot/internal/stats"
)

// DB wraps the database connection pool
type DB struct {
	*sql.DB
	logger *slog.Logger
}

// Connect establishes a connection to the database
func Connect(ctx context.Context, connectionString string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A handful of recipients and one scheduler; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return &DB{DB: db, logger: logger}, nil
}

// Wrap adapts an existing *sql.DB, e.g. one created by sqlmock in tests.
func Wrap(db *sql.DB, logger *slog.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(ctx context.Context, migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		db.logger.Info("running migration", "file", filename)

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	db.logger.Info("migrations completed", "count", len(sqlFiles))
	return nil
}

// OpenRepository checks out a dedicated connection from the pool and
// returns a repository bound to it. Close returns the connection.
func (db *DB) OpenRepository(ctx context.Context) (stats.Repository, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Repository{q: conn, closer: conn}, nil
}

// RepositoryFactory exposes OpenRepository as a stats.RepositoryFactory.
func (db *DB) RepositoryFactory() stats.RepositoryFactory {
	return db.OpenRepository
}
