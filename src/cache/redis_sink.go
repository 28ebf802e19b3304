package cache

import (
	"context"
	"fmt"
	"time"

	"market-flipper/src/interfaces"
	"market-flipper/src/logger"
	"market-flipper/src/models"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

var _ interfaces.ISnapshotSink = (*RedisSink)(nil)

const (
	DefaultKeyPrefix = "flipper"
	// Snapshots expire if the process stops publishing.
	snapshotTTL = 10 * time.Minute
)

// -----------------------------------------------------------------------------
// RedisSink mirrors published candidate lists into Redis.
// -----------------------------------------------------------------------------

type RedisSink struct {
	Client *redis.Client
	Logger *logger.Logger
	Prefix string
	TTL    time.Duration
}

// -----------------------------------------------------------------------------

// NewRedisSink returns nil when Redis is disabled.
func NewRedisSink(cfg *models.MConfig, log *logger.Logger) *RedisSink {
	if !cfg.Redis.Enabled || cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return NewRedisSinkWithClient(client, cfg.Redis.KeyPrefix, log)
}

// -----------------------------------------------------------------------------

func NewRedisSinkWithClient(client *redis.Client, prefix string, log *logger.Logger) *RedisSink {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSink{Client: client, Logger: log, Prefix: prefix, TTL: snapshotTTL}
}

// -----------------------------------------------------------------------------

// SnapshotKey is where the latest list of an engine is stored.
func (r *RedisSink) SnapshotKey(engine string) string {
	return fmt.Sprintf("%s:%s", r.Prefix, engine)
}

// UpdatesChannel carries the name of each engine whose snapshot changed.
func (r *RedisSink) UpdatesChannel() string {
	return r.Prefix + ":updates"
}

// -----------------------------------------------------------------------------

// Ping checks the connection to the Redis server.
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// -----------------------------------------------------------------------------

// Publish stores payload as JSON under the engine key and announces it.
func (r *RedisSink) Publish(ctx context.Context, engine string, payload interface{}) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", engine, err)
	}

	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, r.SnapshotKey(engine), body, r.TTL)
	pipe.Publish(ctx, r.UpdatesChannel(), engine)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s: %w", engine, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// PublishState pushes every engine that published during the tick.
func (r *RedisSink) PublishState(ctx context.Context, state *models.MLatestData) error {
	if state == nil {
		return nil
	}

	payloads := map[string]interface{}{
		models.EngineSpread:        state.Spread,
		models.EngineMeanReversion: state.MeanReversion,
		models.EnginePairTrading:   state.PairSignals,
		models.EnginePairDiscovery: state.PairDiscovery,
	}

	for _, report := range state.Report.Engines {
		if !report.Published {
			continue
		}
		if err := r.Publish(ctx, report.Engine, payloads[report.Engine]); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisSink) Close() error {
	return r.Client.Close()
}
