package table

import (
	"fmt"
	"strings"
)

// Frame is an in-memory table of string cells keyed by header name.
// Row numbers reported in errors are 1-based and exclude the header.
type Frame struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewFrame builds a frame; rows shorter than the header are padded.
func NewFrame(name string, header []string, rows [][]string) *Frame {
	f := &Frame{Name: name, Header: make([]string, len(header))}
	for i, h := range header {
		f.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	f.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		f.Rows = append(f.Rows, padRow(r, len(f.Header)))
	}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Header))
	for i, h := range f.Header {
		f.index[strings.ToLower(h)] = i
	}
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// ColumnIndex returns the position of a column (case-insensitive).
func (f *Frame) ColumnIndex(name string) (int, bool) {
	i, ok := f.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// MissingColumns returns the subset of names missing from the header.
func (f *Frame) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := f.ColumnIndex(n); !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Column returns a copy of the named column's cells.
func (f *Frame) Column(name string) ([]string, error) {
	idx, ok := f.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%s: column %q not found", f.Name, name)
	}
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Value returns the trimmed cell for row i and the named column, or "" if
// the column does not exist.
func (f *Frame) Value(i int, name string) string {
	idx, ok := f.ColumnIndex(name)
	if !ok || i < 0 || i >= len(f.Rows) {
		return ""
	}
	return strings.TrimSpace(f.Rows[i][idx])
}

// Copy returns a deep copy so callers can mutate without touching the load.
func (f *Frame) Copy() *Frame {
	rows := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return NewFrame(f.Name, f.Header, rows)
}

// Head returns up to n leading rows.
func (f *Frame) Head(n int) [][]string {
	if n > len(f.Rows) {
		n = len(f.Rows)
	}
	if n < 0 {
		n = 0
	}
	return f.Rows[:n]
}

func padRow(rec []string, n int) []string {
	row := make([]string, n)
	copy(row, rec)
	return row
}
