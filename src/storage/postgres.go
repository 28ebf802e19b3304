package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-flipper/src/helpers"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
	Now    func() time.Time
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps the journal in a schema named after the service
// (config name, or the executable name when unset).
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	if cfg.Storage.DBConnectionString == "" {
		return nil, fmt.Errorf("postgres journal needs storage.db_connection_string")
	}

	name := cfg.Name
	if name == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
	}

	return &PostgresDB{
		Config: cfg,
		Schema: SchemaName(name),
		Logger: log,
		Now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

// SchemaName lowercases name and replaces anything outside [a-z0-9_] with '_'.
func SchemaName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "market_flipper"
	}
	return b.String()
}

func (d *PostgresDB) table() string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier("signal_journal")
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("create schema %s", d.Schema), err)
	}
	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id UUID NOT NULL,
			engine TEXT NOT NULL,
			tick BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			rank INTEGER NOT NULL,
			instrument_a INTEGER NOT NULL,
			instrument_b INTEGER NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (run_id, engine, tick, rank)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create signal_journal", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS signal_journal_created_idx ON %s (created_at)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return helpers.NewDatabaseError("create signal_journal index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SaveSnapshot writes all rows of a snapshot in one statement via unnest.
func (d *PostgresDB) SaveSnapshot(ctx context.Context, snap models.MJournalSnapshot) error {
	n := len(snap.Entries)
	if n == 0 {
		return nil
	}

	ranks := make([]int64, n)
	as := make([]int64, n)
	bs := make([]int64, n)
	scores := make([]float64, n)
	payloads := make([]string, n)
	for i, e := range snap.Entries {
		ranks[i] = int64(e.Rank)
		as[i] = int64(e.InstrumentA)
		bs[i] = int64(e.InstrumentB)
		scores[i] = e.Score
		payloads[i] = string(e.Payload)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, engine, tick, created_at, rank, instrument_a, instrument_b, score, payload)
		SELECT $1::uuid, $2::text, $3::bigint, $4::bigint, t.r, t.a, t.b, t.s, t.p::jsonb
		FROM unnest($5::int[], $6::int[], $7::int[], $8::float8[], $9::text[]) AS t(r, a, b, s, p)
		ON CONFLICT (run_id, engine, tick, rank) DO NOTHING
	`, d.table())

	_, err := d.DB.ExecContext(ctx, query,
		snap.RunID, snap.Engine, snap.Tick, snap.CreatedAt.UTC().Unix(),
		pq.Array(ranks), pq.Array(as), pq.Array(bs), pq.Array(scores), pq.Array(payloads),
	)
	if err != nil {
		return helpers.NewDatabaseError("insert journal rows", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData(ctx context.Context) error {
	retentionDays := d.Config.Storage.RetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := d.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table()), cutoff)
	if err != nil {
		return helpers.NewDatabaseError("cleanup signal_journal", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		d.Logger.Info("Cleanup removed %d journal rows older than %d days", n, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
