// Package grid turns spreadsheet exports into a dense in-memory cell
// matrix the schedule parser can walk by (row, column) position.
package grid

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Cell is a single grid cell. Link is the cell hyperlink target, when
// the source format carries one (XLSX only).
type Cell struct {
	Value string
	Link  string
}

// Grid is the unparsed tabular document: rows of cells, 0-indexed.
// Rows may have differing lengths; Cell() bounds-checks access.
type Grid struct {
	rows [][]Cell
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	return len(g.rows)
}

// Cols returns the number of cells in row r, or 0 when out of range.
func (g *Grid) Cols(r int) int {
	if r < 0 || r >= len(g.rows) {
		return 0
	}
	return len(g.rows[r])
}

// Cell returns the cell at (r, c), or a zero Cell when out of range.
func (g *Grid) Cell(r, c int) Cell {
	if r < 0 || r >= len(g.rows) {
		return Cell{}
	}
	row := g.rows[r]
	if c < 0 || c >= len(row) {
		return Cell{}
	}
	return row[c]
}

// FromCSV reads a comma-separated export into a Grid. Records of varying
// length are accepted; multi-line cell content survives as embedded
// newlines inside a field.
func FromCSV(r io.Reader) (*Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	g := &Grid{rows: make([][]Cell, len(records))}
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			row[j] = Cell{Value: v}
		}
		g.rows[i] = row
	}
	return g, nil
}

// FromXLSX reads the first sheet of an XLSX workbook into a Grid.
//
// Merged ranges are expanded so that every cell of a merge carries the
// value and hyperlink of its top-left cell. The schedule sheet merges
// cells across group columns for shared lectures and down rows for
// day-of-week markers, so the parser relies on this densification.
func FromXLSX(b []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	g := &Grid{rows: make([][]Cell, len(rows))}
	for i, rec := range rows {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			cell := Cell{Value: v}
			name, nameErr := excelize.CoordinatesToCellName(j+1, i+1)
			if nameErr == nil {
				if has, target, linkErr := f.GetCellHyperLink(sheet, name); linkErr == nil && has {
					cell.Link = target
				}
			}
			row[j] = cell
		}
		g.rows[i] = row
	}

	if err := g.expandMerges(f, sheet); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid) expandMerges(f *excelize.File, sheet string) error {
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return fmt.Errorf("reading merged cells: %w", err)
	}

	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			return fmt.Errorf("merge range %q: %w", m.GetStartAxis(), err)
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			return fmt.Errorf("merge range %q: %w", m.GetEndAxis(), err)
		}

		topLeft := g.Cell(r1-1, c1-1)
		for r := r1 - 1; r < r2; r++ {
			for c := c1 - 1; c < c2; c++ {
				g.set(r, c, topLeft)
			}
		}
	}
	return nil
}

// set writes a cell, growing rows and columns as needed. Merge ranges
// can extend past the last non-empty cell excelize reports.
func (g *Grid) set(r, c int, cell Cell) {
	for len(g.rows) <= r {
		g.rows = append(g.rows, nil)
	}
	for len(g.rows[r]) <= c {
		g.rows[r] = append(g.rows[r], Cell{})
	}
	g.rows[r][c] = cell
}

// FromRows builds a Grid from plain string rows. Used by tests and by
// callers that already hold tabular data.
func FromRows(rows [][]string) *Grid {
	g := &Grid{rows: make([][]Cell, len(rows))}
	for i, rec := range rows {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			row[j] = Cell{Value: v}
		}
		g.rows[i] = row
	}
	return g
}
