// Package stats records spot/perp spread observations into TimescaleDB
// and summarizes the recent window for the acceleration policy.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"okx-unwind-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Observation is one sampled spread between the swap ask and the spot bid,
// expressed as a fraction of the spot bid.
type Observation struct {
	Time   time.Time
	InstID string
	Spread float64
}

// Summary describes the recent spread distribution.
type Summary struct {
	Mean    float64
	StdDev  float64
	Samples int
}

type Recorder struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	queue   chan Observation
	started atomic.Bool
	dropped atomic.Uint64
}

func New(cfg config.StatsConfig, log *zap.Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("stats dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	recorder := &Recorder{
		db:     db,
		log:    log,
		schema: schema,
		queue:  make(chan Observation, queueSize),
	}
	if err := recorder.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return recorder, nil
}

func (r *Recorder) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run(ctx)
}

func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Observe enqueues a spread sample; drops when the queue is full so the
// hot path never blocks on the database.
func (r *Recorder) Observe(obs Observation) {
	if r == nil {
		return
	}
	select {
	case r.queue <- obs:
		return
	default:
		if r.dropped.Add(1) == 1 && r.log != nil {
			r.log.Warn("spread observation queue full")
		}
	}
}

// RecentStats summarizes the spread observations within the trailing
// window. Fewer than two samples cannot produce a deviation.
func (r *Recorder) RecentStats(ctx context.Context, instID string, window time.Duration) (Summary, error) {
	if r == nil || r.db == nil {
		return Summary{}, errors.New("stats recorder not initialized")
	}
	since := time.Now().UTC().Add(-window)
	query := fmt.Sprintf(`SELECT spread FROM %s WHERE inst_id = $1 AND ts >= $2`, r.table("spread_observations"))
	rows, err := r.db.QueryContext(ctx, query, instID, since)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	var spreads []float64
	for rows.Next() {
		var spread float64
		if err := rows.Scan(&spread); err != nil {
			return Summary{}, err
		}
		spreads = append(spreads, spread)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return Summarize(spreads), nil
}

// Summarize computes the mean and sample standard deviation of spreads.
func Summarize(spreads []float64) Summary {
	n := len(spreads)
	if n == 0 {
		return Summary{}
	}
	var sum float64
	for _, s := range spreads {
		sum += s
	}
	mean := sum / float64(n)
	if n < 2 {
		return Summary{Mean: mean, Samples: n}
	}
	var sq float64
	for _, s := range spreads {
		d := s - mean
		sq += d * d
	}
	return Summary{
		Mean:    mean,
		StdDev:  math.Sqrt(sq / float64(n-1)),
		Samples: n,
	}
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case obs := <-r.queue:
			r.write(ctx, obs)
		}
	}
}

func (r *Recorder) ensureSchema(ctx context.Context) error {
	if r.db == nil {
		return errors.New("stats db not initialized")
	}
	if r.schema != "public" {
		if err := r.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", r.schema)); err != nil {
			return err
		}
	}
	if err := r.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		inst_id TEXT NOT NULL,
		spread DOUBLE PRECISION NOT NULL
	)`, r.table("spread_observations"))); err != nil {
		return err
	}
	if err := r.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if r.log != nil {
			r.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := r.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", r.table("spread_observations"))); err != nil && r.log != nil {
		r.log.Warn("spread_observations hypertable create failed", zap.Error(err))
	}
	return nil
}

func (r *Recorder) write(ctx context.Context, obs Observation) {
	if r.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (ts, inst_id, spread) VALUES ($1, $2, $3)`, r.table("spread_observations"))
	if _, err := r.db.ExecContext(ctx, query, obs.Time, obs.InstID, obs.Spread); err != nil && r.log != nil {
		r.log.Warn("spread observation insert failed", zap.Error(err))
	}
}

func (r *Recorder) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, query)
	return err
}

func (r *Recorder) table(name string) string {
	return r.schema + "." + name
}
