package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Table is a dataset kept as raw cells. Every input column survives in its
// original order, so a table can be filtered and written back unchanged.
type Table struct {
	Header []string
	Rows   [][]string

	pos map[string]int
}

// NewTable builds a table from a header and its rows.
func NewTable(header []string, rows [][]string) *Table {
	pos, _ := columnPositions(header, nil)
	return &Table{Header: header, Rows: rows, pos: pos}
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	if i, ok := t.pos[name]; ok {
		return i
	}
	return -1
}

// Cell returns the value of column col in row, or "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// WithRows returns a table with the same header and the given rows.
func (t *Table) WithRows(rows [][]string) *Table {
	return &Table{Header: t.Header, Rows: rows, pos: t.pos}
}

// ReadTable reads a whole CSV file, decompressing it if it ends with .zst, and
// checks that the required columns are present.
func ReadTable(path string, required ...string) (*Table, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(header, required)
	if err != nil {
		return nil, err
	}

	t := &Table{Header: header, pos: pos}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteTable writes the header and rows of t to path.
func WriteTable(path string, t *Table) error {
	return writeCsv(path, false, t.Header, func(cw *csv.Writer) error {
		if err := cw.WriteAll(t.Rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		return nil
	})
}
