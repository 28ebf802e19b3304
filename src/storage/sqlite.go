package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"market-flipper/src/helpers"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	Now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite journal needs storage.db_path")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
		Now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS signal_journal (
			run_id TEXT NOT NULL,
			engine TEXT NOT NULL,
			tick INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			instrument_a INTEGER NOT NULL,
			instrument_b INTEGER NOT NULL,
			score REAL NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (run_id, engine, tick, rank)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create signal_journal", err)
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_signal_journal_created ON signal_journal (created_at)`); err != nil {
		return helpers.NewDatabaseError("create signal_journal index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveSnapshot(ctx context.Context, snap models.MJournalSnapshot) error {
	if len(snap.Entries) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signal_journal (run_id, engine, tick, created_at, rank, instrument_a, instrument_b, score, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, engine, tick, rank) DO NOTHING
	`)
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	created := snap.CreatedAt.UTC().Unix()
	for _, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx, snap.RunID, snap.Engine, snap.Tick, created, e.Rank, e.InstrumentA, e.InstrumentB, e.Score, string(e.Payload)); err != nil {
			return helpers.NewDatabaseError("insert journal row", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := d.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	res, err := d.DB.ExecContext(ctx, "DELETE FROM signal_journal WHERE created_at < ?", cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup signal_journal", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Cleanup removed %d journal rows older than %d days", n, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
