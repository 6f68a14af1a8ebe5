package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"messenger_orders/internal/orders"

	"github.com/rs/zerolog/log"
)

// Worksheet is the slice of a spreadsheet tab the sink needs.
type Worksheet interface {
	RowValues(ctx context.Context, row int) ([]interface{}, error)
	AppendRow(ctx context.Context, values []interface{}) error
}

// Opener returns a freshly authenticated worksheet. It is called once per Save.
type Opener func(ctx context.Context) (Worksheet, error)

// Sink appends order records to the first worksheet of a spreadsheet.
type Sink struct {
	open     Opener
	patterns orders.PatternSet
	// header check and append are serialized within this process only
	mu sync.Mutex
}

// NewSink uses orders.DefaultPatterns when patterns is empty.
func NewSink(open Opener, patterns orders.PatternSet) *Sink {
	if len(patterns) == 0 {
		patterns = orders.DefaultPatterns
	}
	return &Sink{
		open:     open,
		patterns: patterns,
	}
}

// Save writes the header row if row 1 is empty, then appends the record.
func (s *Sink) Save(ctx context.Context, record orders.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open worksheet: %w", err)
	}

	header, err := ws.RowValues(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(header) == 0 {
		log.Debug().Strs("columns", s.patterns.Names()).Msg("Header row empty, writing column names")
		if err := ws.AppendRow(ctx, s.patterns.Header()); err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}
	}

	if err := ws.AppendRow(ctx, s.row(record)); err != nil {
		return fmt.Errorf("failed to append order row: %w", err)
	}

	log.Debug().Int("columns", len(s.patterns)).Msg("Appended order row")
	return nil
}

// row orders the record's values by the sink's PatternSet.
func (s *Sink) row(record orders.Record) []interface{} {
	row := make([]interface{}, len(s.patterns))
	for i, f := range s.patterns {
		v, _ := record.Get(f.Name)
		row[i] = v
	}
	return row
}

// Target identifies the spreadsheet a ClientOpener writes to.
type Target struct {
	CredentialsFile string
	// SpreadsheetID takes precedence over Name when set.
	SpreadsheetID string
	Name          string
}

// ClientOpener authenticates a new Client on every call and resolves the
// target's first worksheet.
func ClientOpener(target Target) Opener {
	return func(ctx context.Context) (Worksheet, error) {
		client, err := NewClient(ctx, target.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return client.OpenFirstSheet(ctx, target)
	}
}

// OpenFirstSheet resolves target to its first worksheet.
func (c *Client) OpenFirstSheet(ctx context.Context, target Target) (Worksheet, error) {
	spreadsheetID := target.SpreadsheetID
	if spreadsheetID == "" {
		id, err := c.FindSpreadsheet(ctx, target.Name)
		if err != nil {
			return nil, err
		}
		spreadsheetID = id
	}

	title, err := c.FirstSheetTitle(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("sheet", title).
		Msg("Opened worksheet")

	return &worksheet{client: c, spreadsheetID: spreadsheetID, title: title}, nil
}

type worksheet struct {
	client        *Client
	spreadsheetID string
	title         string
}

func (w *worksheet) RowValues(ctx context.Context, row int) ([]interface{}, error) {
	values, err := w.client.ReadSheet(ctx, w.spreadsheetID, fmt.Sprintf("%s!%d:%d", quoteTitle(w.title), row, row))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (w *worksheet) AppendRow(ctx context.Context, values []interface{}) error {
	return w.client.AppendRows(ctx, w.spreadsheetID, quoteTitle(w.title)+"!A1", [][]interface{}{values})
}

// quoteTitle quotes a sheet title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
