package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// CSVSource reads a single-instrument time series from a CSV file:
//
//	date,close,pe_ratio
//	2020-01-02,3257.85,24.2
//
// The first row must be a header. The first column is the timestamp
// (RFC3339, RFC3339Nano or 2006-01-02); every other column becomes a named
// numeric field on the observation, keyed by its lower-cased header name.
// Rows sharing a timestamp are grouped into one batch. Timestamps must be
// non-decreasing.
type CSVSource struct {
	f          *os.File
	r          *csv.Reader
	instrument string
	fields     []string

	pending *market.Observation
	lastTS  time.Time
	err     error
	eof     bool
}

func NewCSVSource(path, instrument string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		f.Close()
		return nil, fmt.Errorf("csv header needs a time column and at least one field, got %v", header)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = strings.ToLower(strings.TrimSpace(h))
	}

	return &CSVSource{f: f, r: r, instrument: instrument, fields: fields}, nil
}

func (s *CSVSource) Close() error {
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

// HasNext reports whether another batch is available. A read error also
// counts as "available" so NextBatch can surface it instead of the run
// ending silently.
func (s *CSVSource) HasNext() bool {
	if s.pending != nil || s.err != nil {
		return true
	}
	if s.eof {
		return false
	}
	s.advance()
	return s.pending != nil || s.err != nil
}

// NextBatch returns all pending observations sharing the current timestamp.
func (s *CSVSource) NextBatch() (market.Batch, error) {
	if !s.HasNext() {
		return nil, ErrExhausted
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		s.eof = true
		return nil, err
	}

	batch := market.Batch{*s.pending}
	ts := s.pending.Time
	s.pending = nil

	// Pull every row that shares this timestamp into the batch.
	for {
		s.advance()
		if s.pending == nil || s.err != nil || !s.pending.Time.Equal(ts) {
			break
		}
		batch = append(batch, *s.pending)
		s.pending = nil
	}

	return batch, nil
}

// advance reads rows until one parses into an observation, hits EOF, or
// fails. It fills exactly one pending slot.
func (s *CSVSource) advance() {
	if s.pending != nil || s.err != nil || s.eof {
		return
	}
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			s.eof = true
			return
		}
		if err != nil {
			s.err = err
			return
		}
		if len(row) == 0 {
			continue
		}

		obs, ok, err := s.parseRow(row)
		if err != nil {
			s.err = err
			return
		}
		if !ok {
			continue
		}
		if !s.lastTS.IsZero() && obs.Time.Before(s.lastTS) {
			s.err = fmt.Errorf("csv rows out of order: %s after %s",
				obs.Time.Format(time.RFC3339), s.lastTS.Format(time.RFC3339))
			return
		}
		s.lastTS = obs.Time
		s.pending = &obs
		return
	}
}

func (s *CSVSource) parseRow(row []string) (market.Observation, bool, error) {
	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Observation{}, false, nil
	}

	t, err := parseTime(ts)
	if err != nil {
		return market.Observation{}, false, err
	}

	fields := make(map[string]float64, len(row)-1)
	for i := 1; i < len(row) && i < len(s.fields); i++ {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return market.Observation{}, false, fmt.Errorf("bad %s %q: %w", s.fields[i], cell, err)
		}
		fields[s.fields[i]] = v
	}
	if len(fields) == 0 {
		return market.Observation{}, false, nil
	}

	return market.Observation{
		Instrument: s.instrument,
		Time:       t,
		Fields:     fields,
	}, true, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
