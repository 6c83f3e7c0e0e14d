package prices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/pkg/logger"
	"github.com/rs/zerolog"
)

// HistoryDB provides access to daily price history in history.db
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: logger.Component(log, "history_db"),
	}
}

// SaveDailyPrices inserts or replaces bars for a symbol in a single transaction
func (h *HistoryDB) SaveDailyPrices(ctx context.Context, symbol string, bars []DailyPrice) error {
	err := database.WithTransaction(h.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_prices
			(symbol, date, open, high, low, close, adjusted_close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			_, err := stmt.ExecContext(ctx,
				symbol,
				b.Date.UTC().Unix(),
				toNullFloat(b.Open), toNullFloat(b.High), toNullFloat(b.Low),
				toNullFloat(b.Close), toNullFloat(b.AdjustedClose),
				toNullInt(b.Volume),
			)
			if err != nil {
				return fmt.Errorf("failed to insert daily price for %s: %w", b.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info().
		Str("symbol", symbol).
		Int("count", len(bars)).
		Msg("Saved daily prices")

	return nil
}

// Symbols returns every symbol with at least one bar, sorted ascending
func (h *HistoryDB) Symbols(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// GetDailyPrices returns all bars for a symbol in ascending date order
func (h *HistoryDB) GetDailyPrices(ctx context.Context, symbol string) ([]DailyPrice, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, adjusted_close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []DailyPrice
	for rows.Next() {
		var (
			dateUnix                          int64
			open, high, low, closeP, adjClose sql.NullFloat64
			volume                            sql.NullInt64
		)
		if err := rows.Scan(&dateUnix, &open, &high, &low, &closeP, &adjClose, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		bar := DailyPrice{
			Symbol:        symbol,
			Date:          time.Unix(dateUnix, 0).UTC(),
			Open:          nullFloat(open),
			High:          nullFloat(high),
			Low:           nullFloat(low),
			Close:         nullFloat(closeP),
			AdjustedClose: nullFloat(adjClose),
		}
		if volume.Valid {
			v := volume.Int64
			bar.Volume = &v
		}
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return bars, nil
}

// LoadUniverse resolves canonical series for the given symbols (all stored symbols when empty).
//
// Instruments without a usable price field or without bars are excluded and reported in the
// returned warnings; they never fail the load.
func (h *HistoryDB) LoadUniverse(ctx context.Context, symbols []string) (map[string]domain.PriceSeries, []string, error) {
	if len(symbols) == 0 {
		all, err := h.Symbols(ctx)
		if err != nil {
			return nil, nil, err
		}
		symbols = all
	}

	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	universe := make(map[string]domain.PriceSeries, len(sorted))
	var warnings []string

	for _, symbol := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		bars, err := h.GetDailyPrices(ctx, symbol)
		if err != nil {
			return nil, nil, err
		}
		if len(bars) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: no price history", symbol))
			h.log.Warn().Str("symbol", symbol).Msg("No price history, instrument excluded")
			continue
		}

		series, err := ResolveSeries(symbol, bars)
		if err != nil {
			if errors.Is(err, domain.ErrMissingPriceField) {
				warnings = append(warnings, err.Error())
				h.log.Warn().Str("symbol", symbol).Msg("No adjusted close or close, instrument excluded")
				continue
			}
			return nil, nil, err
		}

		if err := series.Validate(); err != nil {
			warnings = append(warnings, err.Error())
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("Invalid price series, instrument excluded")
			continue
		}

		universe[symbol] = series
	}

	h.log.Debug().
		Int("requested", len(sorted)).
		Int("usable", len(universe)).
		Msg("Loaded price universe")

	return universe, warnings, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func toNullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
