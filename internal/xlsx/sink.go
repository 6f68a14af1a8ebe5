// Package xlsx appends order records to a local workbook. It is the standby
// alternative to the Google Sheets sink.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"

	"messenger_orders/internal/orders"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Result describes the outcome of one Save. Err is nil on success.
type Result struct {
	Path    string
	Created bool
	// Row is the 1-based row the record was written to, 0 unless Err is nil.
	Row int
	Err error
}

// OK reports whether the record was persisted.
func (r Result) OK() bool {
	return r.Err == nil
}

type Sink struct {
	path     string
	patterns orders.PatternSet
}

// NewSink uses orders.DefaultPatterns when patterns is empty.
func NewSink(path string, patterns orders.PatternSet) *Sink {
	if len(patterns) == 0 {
		patterns = orders.DefaultPatterns
	}
	return &Sink{path: path, patterns: patterns}
}

// Save creates the workbook with a header row when it does not exist yet,
// otherwise it appends one data row after the last used row of the first sheet.
func (s *Sink) Save(record orders.Record) Result {
	_, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s.create(record)
	case err != nil:
		return Result{Path: s.path, Err: fmt.Errorf("failed to stat %s: %w", s.path, err)}
	default:
		return s.append(record)
	}
}

func (s *Sink) create(record orders.Record) Result {
	res := Result{Path: s.path}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := s.patterns.Header()
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		res.Err = fmt.Errorf("failed to write header: %w", err)
		return res
	}
	row := s.row(record)
	if err := f.SetSheetRow(sheet, "A2", &row); err != nil {
		res.Err = fmt.Errorf("failed to write order row: %w", err)
		return res
	}
	if err := f.SaveAs(s.path); err != nil {
		res.Err = fmt.Errorf("failed to create %s: %w", s.path, err)
		return res
	}

	res.Created = true
	res.Row = 2
	return res
}

func (s *Sink) append(record orders.Record) Result {
	res := Result{Path: s.path}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		res.Err = fmt.Errorf("failed to open %s: %w", s.path, err)
		return res
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		res.Err = fmt.Errorf("failed to read rows: %w", err)
		return res
	}

	next := len(rows) + 1
	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		res.Err = err
		return res
	}
	row := s.row(record)
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		res.Err = fmt.Errorf("failed to write order row: %w", err)
		return res
	}
	if err := f.Save(); err != nil {
		res.Err = fmt.Errorf("failed to save %s: %w", s.path, err)
		return res
	}

	res.Row = next
	return res
}

func (s *Sink) row(record orders.Record) []interface{} {
	row := make([]interface{}, len(s.patterns))
	for i, f := range s.patterns {
		v, _ := record.Get(f.Name)
		row[i] = v
	}
	return row
}

// Store adapts Sink to the dispatcher. Failed saves are logged and dropped.
type Store struct {
	Sink *Sink
}

func (s Store) Save(ctx context.Context, record orders.Record) error {
	res := s.Sink.Save(record)
	if !res.OK() {
		log.Error().Err(res.Err).Str("path", res.Path).Msg("An error occurred while saving the order")
		return nil
	}
	if res.Created {
		log.Info().Str("path", res.Path).Msg("File created and order saved")
	} else {
		log.Info().Str("path", res.Path).Int("row", res.Row).Msg("Order saved")
	}
	return nil
}
