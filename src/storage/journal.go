package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"
	"market-flipper/src/utils"
)

// CleanupEveryTicks is how often the journal applies its retention policy.
const CleanupEveryTicks = 360

// -----------------------------------------------------------------------------

// NewDatabase builds the journal backend selected by storage.db_type.
// "none" (or an empty type) returns a nil database and no error.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "postgres":
		return NewPostgresDB(cfg, log.With("PostgresDB"))
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log.With("SQLiteDB"))
	default:
		return nil, fmt.Errorf("unknown storage.db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------
// Journal records every newly published candidate list under one run id.
// -----------------------------------------------------------------------------

type Journal struct {
	DB     interfaces.IDatabase
	Logger *logger.Logger
	RunID  string
	gate   *utils.CadenceGate
}

// -----------------------------------------------------------------------------

func NewJournal(db interfaces.IDatabase, log *logger.Logger) *Journal {
	return &Journal{
		DB:     db,
		Logger: log,
		RunID:  uuid.NewString(),
		gate:   utils.NewCadenceGate(CleanupEveryTicks),
	}
}

// -----------------------------------------------------------------------------

// Record saves the lists of engines that published on this tick and
// periodically applies retention.
func (j *Journal) Record(ctx context.Context, data *models.MLatestData) error {
	snaps, err := BuildSnapshots(j.RunID, data)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range snaps {
		if err := j.DB.SaveSnapshot(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Engine, err))
		}
	}

	if j.gate.Tick() {
		if err := j.DB.CleanupOldData(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------

// BuildSnapshots turns the engines that published on this tick into journal rows.
func BuildSnapshots(runID string, data *models.MLatestData) ([]models.MJournalSnapshot, error) {
	published := make(map[string]bool, len(data.Report.Engines))
	for _, er := range data.Report.Engines {
		published[er.Engine] = er.Published
	}

	created := time.Unix(data.Timestamp, 0).UTC()
	out := make([]models.MJournalSnapshot, 0, len(models.AllEngines))

	add := func(engine string, entries []models.MJournalEntry, err error) error {
		if err != nil {
			return fmt.Errorf("encode %s: %w", engine, err)
		}
		if !published[engine] || len(entries) == 0 {
			return nil
		}
		out = append(out, models.MJournalSnapshot{
			RunID:     runID,
			Engine:    engine,
			Tick:      data.Report.Tick,
			CreatedAt: created,
			Entries:   entries,
		})
		return nil
	}

	spread, err := entriesOf(data.Spread, func(c models.MSpreadCandidate) (int, int, float64) {
		return c.ItemID, 0, float64(c.ExpectedProfit())
	})
	if err := add(models.EngineSpread, spread, err); err != nil {
		return nil, err
	}

	mr, err := entriesOf(data.MeanReversion, func(c models.MMeanReversionCandidate) (int, int, float64) {
		return c.ItemID, 0, c.DeviationPercent
	})
	if err := add(models.EngineMeanReversion, mr, err); err != nil {
		return nil, err
	}

	pairs, err := entriesOf(data.PairSignals, func(s models.MPairSignal) (int, int, float64) {
		return s.Key.A, s.Key.B, math.Abs(s.ZScore)
	})
	if err := add(models.EnginePairTrading, pairs, err); err != nil {
		return nil, err
	}

	disc, err := entriesOf(data.PairDiscovery, func(c models.MPairCandidate) (int, int, float64) {
		return c.Key.A, c.Key.B, c.Correlation
	})
	if err := add(models.EnginePairDiscovery, disc, err); err != nil {
		return nil, err
	}

	return out, nil
}

// -----------------------------------------------------------------------------

func entriesOf[T any](rows []T, key func(T) (int, int, float64)) ([]models.MJournalEntry, error) {
	out := make([]models.MJournalEntry, 0, len(rows))
	for i, r := range rows {
		payload, err := sonic.Marshal(r)
		if err != nil {
			return nil, err
		}
		a, b, score := key(r)
		out = append(out, models.MJournalEntry{
			Rank:        i + 1,
			InstrumentA: a,
			InstrumentB: b,
			Score:       score,
			Payload:     payload,
		})
	}
	return out, nil
}
