package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/capturectl/internal/errors"
	"codeberg.org/mutker/capturectl/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, report *Report) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            started_at INTEGER,
            output_dir TEXT,
            frames INTEGER,
            grab_fps REAL,
            max_stable_fps REAL,
            elapsed_ms INTEGER,
            interval_p50_ms REAL,
            interval_p95_ms REAL,
            interval_p99_ms REAL,
            missing_records INTEGER
        );
        CREATE TABLE IF NOT EXISTS sink_stats (
            session_id TEXT,
            worker_id INTEGER,
            frames INTEGER,
            fps REAL,
            elapsed_ms INTEGER,
            PRIMARY KEY (session_id, worker_id)
        )
    `)

	return err
}

func (r *sqliteRepository) Store(ctx context.Context, report *Report) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	var grabFPS, maxStableFPS float64
	var elapsedMs int64
	if report.Grab != nil {
		grabFPS = report.Grab.FPS
		maxStableFPS = report.Grab.MaxStableFPS
		elapsedMs = report.Grab.Elapsed.Milliseconds()
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO sessions (
            id, started_at, output_dir, frames,
            grab_fps, max_stable_fps, elapsed_ms,
            interval_p50_ms, interval_p95_ms, interval_p99_ms,
            missing_records
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		report.SessionID,
		report.StartedAt.Unix(),
		report.OutputDir,
		report.Frames(),
		grabFPS,
		maxStableFPS,
		elapsedMs,
		float64(report.IntervalP50)/1e6,
		float64(report.IntervalP95)/1e6,
		float64(report.IntervalP99)/1e6,
		report.MissingRecords,
	)
	if err != nil {
		tx.Rollback()
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	for i := range report.Saves {
		save := &report.Saves[i]
		_, err = tx.ExecContext(ctx, `
            INSERT INTO sink_stats (session_id, worker_id, frames, fps, elapsed_ms)
            VALUES (?, ?, ?, ?, ?)
        `,
			report.SessionID,
			save.WorkerID,
			save.Frames,
			save.FPS,
			save.Elapsed.Milliseconds(),
		)
		if err != nil {
			tx.Rollback()
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}
