package orders

import (
	"bytes"
	"encoding/json"
)

// Value is one extracted field.
type Value struct {
	Field string
	Text  string
}

// Record is a fully matched order. Values keep the PatternSet order.
type Record struct {
	values []Value
}

// NewRecord builds a record from values already in column order.
func NewRecord(values ...Value) Record {
	return Record{values: append([]Value(nil), values...)}
}

// Values returns a copy of the extracted values in column order.
func (r Record) Values() []Value {
	return append([]Value(nil), r.values...)
}

// Get returns the value extracted for field.
func (r Record) Get(field string) (string, bool) {
	for _, v := range r.values {
		if v.Field == field {
			return v.Text, true
		}
	}
	return "", false
}

// Len reports the number of fields in the record.
func (r Record) Len() int {
	return len(r.values)
}

// Row returns the values in column order, ready to append to a sheet.
func (r Record) Row() []interface{} {
	row := make([]interface{}, len(r.values))
	for i, v := range r.values {
		row[i] = v.Text
	}
	return row
}

// MarshalJSON writes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Field)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
