package ledger

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/pairs"
	testutil "github.com/aristath/pairlab/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "results")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func sampleRun(t *testing.T) *Run {
	t.Helper()
	x, y := testutil.CointegratedPair(21, 300, 3, 1.1)
	result, err := backtest.Run(x, y, 100000, 1.0, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	return NewRun(pairs.Candidate{SymbolA: "x", SymbolB: "y", PValue: 0.001}, result)
}

func TestNewRun(t *testing.T) {
	run := sampleRun(t)

	assert.Equal(t, "x", run.SymbolA)
	assert.Equal(t, 0.001, run.PValue)
	assert.Equal(t, 300, run.Observations)
	assert.Equal(t, "full_sample", run.Normalization)
	require.NotNil(t, run.Series)
	assert.Len(t, run.Series.Times, 300)
	assert.Len(t, run.Series.Capital, 300)
	assert.Equal(t, len(run.Trades), run.Summary.TotalTrades)
	assert.True(t, run.EndDate.After(run.StartDate))
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	run := sampleRun(t)

	require.NoError(t, repo.Save(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.SymbolA, got.SymbolA)
	assert.Equal(t, run.SymbolB, got.SymbolB)
	assert.Equal(t, run.HedgeRatio, got.HedgeRatio)
	assert.Equal(t, run.FinalCapital, got.FinalCapital)
	assert.Equal(t, run.StartDate, got.StartDate)
	assert.Equal(t, run.EndDate, got.EndDate)

	require.Len(t, got.Trades, len(run.Trades))
	for i := range run.Trades {
		assert.Equal(t, run.Trades[i].Direction, got.Trades[i].Direction)
		assert.Equal(t, run.Trades[i].EntryTime, got.Trades[i].EntryTime)
		assert.Equal(t, run.Trades[i].Profit, got.Trades[i].Profit)
		assert.Equal(t, run.Trades[i].EntryIndex, got.Trades[i].EntryIndex)
		assert.Equal(t, run.Trades[i].ExitIndex, got.Trades[i].ExitIndex)
	}

	require.NotNil(t, got.Series)
	assert.Equal(t, run.Series.Times, got.Series.Times)
	assert.Equal(t, []float64(run.Series.Capital), []float64(got.Series.Capital))
	assert.Equal(t, run.Summary, got.Summary)
}

func TestRepository_GetNotFound(t *testing.T) {
	repo := newRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_List(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	first := sampleRun(t)
	second := sampleRun(t)
	require.NoError(t, repo.Save(ctx, first))
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, second))

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Nil(t, runs[0].Series)
	assert.Equal(t, len(second.Trades), runs[0].Summary.TotalTrades)

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepository_NaNZScoreStoredAsNull(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	run := sampleRun(t)
	run.Trades[0].ExitZ = math.NaN()

	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Trades[0].ExitZ))
}

func TestExportExcel(t *testing.T) {
	run := sampleRun(t)
	run.ID = "run-1"

	var buf bytes.Buffer
	require.NoError(t, ExportExcel(run, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetTrades, SheetEquity}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run", "run-1"}, summary[0])
	assert.Equal(t, "x / y", summary[1][1])

	trades, err := f.GetRows(SheetTrades)
	require.NoError(t, err)
	assert.Len(t, trades, len(run.Trades)+1)
	assert.Equal(t, "Entry Date", trades[0][0])

	equity, err := f.GetRows(SheetEquity)
	require.NoError(t, err)
	assert.Len(t, equity, 301)
	assert.Equal(t, "100000", equity[1][3])
}
