package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, run_id, instrument, direction, qty, price, commission, slippage, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FillID, f.RunID, f.Instrument, f.Direction,
		f.Quantity, f.Price, f.Commission, f.Slippage, f.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, cash, net_liquidation, total_value)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Cash, e.NetLiquidation, e.TotalValue,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
