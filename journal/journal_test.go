package journal

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/engine"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
)

var testTime = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

func sampleFill() FillRecord {
	return FillRecord{
		FillID:     "fill-1",
		RunID:      "run-1",
		Instrument: "SPX",
		Direction:  1,
		Quantity:   20,
		Price:      100.01,
		Commission: 1.5,
		Slippage:   0.2,
		Time:       testTime,
	}
}

func sampleEquity() EquitySnapshot {
	return EquitySnapshot{
		RunID:          "run-1",
		Time:           testTime,
		Cash:           97998.3,
		NetLiquidation: 2000,
		TotalValue:     99998.3,
	}
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	require.NoError(t, j.RecordFill(sampleFill()))
	require.NoError(t, j.RecordEquity(sampleEquity()))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		instrument string
		direction  int
		qty, price float64
	)
	row := db.QueryRow(`SELECT instrument, direction, qty, price FROM fills WHERE run_id = ?`, "run-1")
	require.NoError(t, row.Scan(&instrument, &direction, &qty, &price))
	assert.Equal(t, "SPX", instrument)
	assert.Equal(t, 1, direction)
	assert.InDelta(t, 20, qty, 1e-9)
	assert.InDelta(t, 100.01, price, 1e-9)

	var cash, total float64
	row = db.QueryRow(`SELECT cash, total_value FROM equity WHERE run_id = ?`, "run-1")
	require.NoError(t, row.Scan(&cash, &total))
	assert.InDelta(t, 97998.3, cash, 1e-9)
	assert.InDelta(t, 99998.3, total, 1e-9)
}

func TestSQLiteJournalSchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Reopening an existing database must not fail on CREATE TABLE.
	j, err = NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordEquity(sampleEquity()))
	require.NoError(t, j.Close())
}

func TestCSVJournalWritesRows(t *testing.T) {
	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.RecordFill(sampleFill()))
	require.NoError(t, j.RecordEquity(sampleEquity()))
	require.NoError(t, j.Close())

	rows := readCSV(t, fillsPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"fill_id", "run_id", "instrument", "direction", "qty", "price", "commission", "slippage", "time"}, rows[0])
	assert.Equal(t, "fill-1", rows[1][0])
	assert.Equal(t, "1", rows[1][3])
	assert.Equal(t, "100.010000", rows[1][5])
	assert.Equal(t, testTime.Format(time.RFC3339), rows[1][8])

	rows = readCSV(t, equityPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"run_id", "time", "cash", "net_liquidation", "total_value"}, rows[0])
	assert.Equal(t, "97998.300000", rows[1][2])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// memJournal captures records in memory for the Reporter tests.
type memJournal struct {
	fills  []FillRecord
	equity []EquitySnapshot
}

func (m *memJournal) RecordFill(f FillRecord) error       { m.fills = append(m.fills, f); return nil }
func (m *memJournal) RecordEquity(e EquitySnapshot) error { m.equity = append(m.equity, e); return nil }
func (m *memJournal) Close() error                        { return nil }

func TestReporterTranslatesFrames(t *testing.T) {
	t.Parallel()

	mem := &memJournal{}
	r := NewReporter(mem)
	require.NotEmpty(t, r.RunID())

	frame := engine.Frame{
		Seq:  0,
		Time: testTime,
		Fills: []market.Fill{{
			ID:         "fill-1",
			Instrument: "SPX",
			Time:       testTime,
			Direction:  market.Buy,
			Price:      100.01,
			Quantity:   20,
			Commission: 1.5,
			Slippage:   0.2,
		}},
		Portfolio: portfolio.Snapshot{
			Cash:           97998.3,
			NetLiquidation: 2000,
			TotalValue:     99998.3,
		},
	}
	require.NoError(t, r.OnTick(frame))

	require.Len(t, mem.fills, 1)
	assert.Equal(t, "fill-1", mem.fills[0].FillID)
	assert.Equal(t, r.RunID(), mem.fills[0].RunID)
	assert.Equal(t, 1, mem.fills[0].Direction)

	require.Len(t, mem.equity, 1)
	assert.Equal(t, r.RunID(), mem.equity[0].RunID)
	assert.InDelta(t, 99998.3, mem.equity[0].TotalValue, 1e-9)

	// A frame without fills still records equity.
	require.NoError(t, r.OnTick(engine.Frame{Seq: 1, Time: testTime.Add(24 * time.Hour)}))
	assert.Len(t, mem.fills, 1)
	assert.Len(t, mem.equity, 2)
}

func TestReporterRunIDsAreUnique(t *testing.T) {
	t.Parallel()

	a := NewReporter(&memJournal{})
	b := NewReporter(&memJournal{})
	assert.NotEqual(t, a.RunID(), b.RunID())
}
