package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository persists backtest runs in results.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "backtest_runs").Logger(),
	}
}

// Save inserts a run and its trades atomically. An empty ID is assigned a new UUID.
func (r *Repository) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	series := run.Series
	if series == nil {
		series = &RunSeries{}
	}
	blob, err := msgpack.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to encode run series: %w", err)
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_runs
			(id, symbol_a, symbol_b, p_value, hedge_ratio, initial_capital, final_capital,
			 entry_threshold, exit_threshold, risk_fraction, normalization,
			 start_date, end_date, observations, series, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, run.SymbolA, run.SymbolB, run.PValue, run.HedgeRatio,
			run.InitialCapital, run.FinalCapital,
			run.EntryThreshold, run.ExitThreshold, run.RiskFraction, run.Normalization,
			run.StartDate.Unix(), run.EndDate.Unix(), run.Observations, blob, run.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO backtest_trades
			(run_id, seq, direction, entry_date, exit_date, entry_spread, exit_spread,
			 entry_z, exit_z, profit, forced_close)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trade insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range run.Trades {
			forced := 0
			if t.ForcedClose {
				forced = 1
			}
			_, err := stmt.ExecContext(ctx,
				run.ID, i, string(t.Direction), t.EntryTime.Unix(), t.ExitTime.Unix(),
				t.EntrySpread, t.ExitSpread, finiteOrNull(t.EntryZ), finiteOrNull(t.ExitZ), t.Profit, forced,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trade %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", run.ID).
		Str("pair", run.SymbolA+"/"+run.SymbolB).
		Int("trades", len(run.Trades)).
		Msg("Saved backtest run")

	return nil
}

const runColumns = `id, symbol_a, symbol_b, p_value, hedge_ratio, initial_capital, final_capital,
	entry_threshold, exit_threshold, risk_fraction, normalization,
	start_date, end_date, observations, created_at`

// Get returns a run with its trades, series and summary
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+", series FROM backtest_runs WHERE id = ?", id)

	var blob []byte
	run, err := scanRun(row, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var series RunSeries
	if err := msgpack.Unmarshal(blob, &series); err != nil {
		return nil, fmt.Errorf("failed to decode series of run %s: %w", id, err)
	}
	run.Series = &series

	if err := r.loadTrades(ctx, run); err != nil {
		return nil, err
	}
	run.Summary.MaxDrawdownPct = MaxDrawdownPct(series.Capital)

	index := make(map[int64]int, len(series.Times))
	for i, ts := range series.Times {
		index[ts] = i
	}
	for i := range run.Trades {
		run.Trades[i].EntryIndex = index[run.Trades[i].EntryTime.Unix()]
		run.Trades[i].ExitIndex = index[run.Trades[i].ExitTime.Unix()]
	}

	return run, nil
}

// List returns the most recent runs, newest first, with trades and summary but without series
func (r *Repository) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM backtest_runs ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	for _, run := range runs {
		if err := r.loadTrades(ctx, run); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner, blob *[]byte) (*Run, error) {
	var (
		run                         Run
		startUnix, endUnix, created int64
	)
	dest := []interface{}{
		&run.ID, &run.SymbolA, &run.SymbolB, &run.PValue, &run.HedgeRatio,
		&run.InitialCapital, &run.FinalCapital,
		&run.EntryThreshold, &run.ExitThreshold, &run.RiskFraction, &run.Normalization,
		&startUnix, &endUnix, &run.Observations, &created,
	}
	if blob != nil {
		dest = append(dest, blob)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	run.StartDate = time.Unix(startUnix, 0).UTC()
	run.EndDate = time.Unix(endUnix, 0).UTC()
	run.CreatedAt = time.Unix(created, 0).UTC()
	return &run, nil
}

func (r *Repository) loadTrades(ctx context.Context, run *Run) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT direction, entry_date, exit_date, entry_spread, exit_spread,
		       entry_z, exit_z, profit, forced_close
		FROM backtest_trades
		WHERE run_id = ?
		ORDER BY seq
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query trades of run %s: %w", run.ID, err)
	}
	defer rows.Close()

	run.Trades = make([]backtest.Trade, 0)
	for rows.Next() {
		var (
			t                   backtest.Trade
			direction           string
			entryUnix, exitUnix int64
			entryZ, exitZ       sql.NullFloat64
			forced              int
		)
		if err := rows.Scan(&direction, &entryUnix, &exitUnix, &t.EntrySpread, &t.ExitSpread,
			&entryZ, &exitZ, &t.Profit, &forced); err != nil {
			return fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Direction = backtest.Direction(direction)
		t.EntryTime = time.Unix(entryUnix, 0).UTC()
		t.ExitTime = time.Unix(exitUnix, 0).UTC()
		t.EntryZ = nullToNaN(entryZ)
		t.ExitZ = nullToNaN(exitZ)
		t.ForcedClose = forced == 1
		run.Trades = append(run.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating trades: %w", err)
	}

	run.Summary = Summarize(run.Trades, run.InitialCapital, run.FinalCapital)
	return nil
}

// finiteOrNull maps NaN and ±Inf to SQL NULL
func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
