package orders

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrIncomplete is matched by every IncompleteError via errors.Is.
var ErrIncomplete = errors.New("order details not found")

// IncompleteError reports which required fields had no match in a message.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("order details not found: missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// Field pairs a column name with the pattern whose first capture group is its value.
type Field struct {
	Name    string
	Pattern *regexp.Regexp
}

// PatternSet is the ordered list of required fields. Its order is the column order.
type PatternSet []Field

// DefaultPatterns are the labels customers type into an order message.
var DefaultPatterns = PatternSet{
	{Name: "Customer Name", Pattern: regexp.MustCompile(`Customer Name:\s*(.*)`)},
	{Name: "Product Name", Pattern: regexp.MustCompile(`Product Name:\s*(.*)`)},
	{Name: "Price", Pattern: regexp.MustCompile(`Price:\s*(\d+(\.\d+)?)`)},
	{Name: "Quantity", Pattern: regexp.MustCompile(`Quantity:\s*(\d+)`)},
	{Name: "Address", Pattern: regexp.MustCompile(`Address:\s*(.*)`)},
}

// Names returns the field names in column order, used as the header row.
func (p PatternSet) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// Header returns the field names as a sheet row.
func (p PatternSet) Header() []interface{} {
	row := make([]interface{}, len(p))
	for i, f := range p {
		row[i] = f.Name
	}
	return row
}

// Extract applies every pattern to message. The record is returned only when
// all fields matched; otherwise the error is an *IncompleteError.
func (p PatternSet) Extract(message string) (Record, error) {
	values := make([]Value, 0, len(p))
	var missing []string

	for _, f := range p {
		m := f.Pattern.FindStringSubmatch(message)
		if len(m) < 2 {
			log.Debug().Str("field", f.Name).Msg("Pattern not matched")
			missing = append(missing, f.Name)
			continue
		}
		values = append(values, Value{Field: f.Name, Text: m[1]})
	}

	if len(missing) > 0 {
		return Record{}, &IncompleteError{Missing: missing}
	}
	return Record{values: values}, nil
}
