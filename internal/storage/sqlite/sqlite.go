package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
	"github.com/slok/cupload/internal/storage"
	"github.com/slok/cupload/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.HistoryRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

var _ storage.HistoryRepository = &Repository{}

// NewRepository creates a new SQLite repository, applying the pending migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// RecordOutcome stores a task notification.
func (r *Repository) RecordOutcome(ctx context.Context, n model.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	query := `
		INSERT INTO upload_outcomes (task_id, batch_id, outcome, display_name, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, n.TaskID, n.BatchID, n.Outcome, n.DisplayName, n.Reason, n.At.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: upload_outcomes.") {
			return fmt.Errorf("outcome of task %s: %w", n.TaskID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert outcome: %w", err)
	}

	r.logger.Debugf("Recorded outcome of task %s", n.TaskID)
	return nil
}

// ListOutcomes returns the recorded notifications, newest first.
func (r *Repository) ListOutcomes(ctx context.Context, opts storage.ListOutcomesOpts) ([]model.Notification, error) {
	var (
		where []string
		args  []any
	)
	if opts.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, opts.BatchID)
	}
	if opts.Outcome != nil {
		where = append(where, "outcome = ?")
		args = append(args, *opts.Outcome)
	}

	query := `SELECT task_id, batch_id, outcome, display_name, reason, created_at FROM upload_outcomes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query outcomes: %w", err)
	}
	defer rows.Close()

	res := []model.Notification{}
	for rows.Next() {
		var (
			n         model.Notification
			createdAt int64
		)
		if err := rows.Scan(&n.TaskID, &n.BatchID, &n.Outcome, &n.DisplayName, &n.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		n.At = time.UnixMilli(createdAt).UTC()
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return res, nil
}
