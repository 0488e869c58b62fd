// Package electives builds per-student calendars from a second sheet of
// elective choices, matching free-text choice strings against the
// elective lessons scheduled for third-year groups.
package electives

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header labels of the choices sheet.
const (
	colName     = "ФИО"
	colGroup    = "Группа"
	colTechSix  = "Технологический блок (6 семестр)"
	colSciSix   = "Научный блок (6 семестр)"
)

// Choice is one student's elective selection.
type Choice struct {
	Name     string
	Group    string
	Tech     string
	Sci      string
}

// ParseChoices reads the choices sheet CSV export. Rows without a name
// or group are skipped. The 5th-semester columns are ignored.
func ParseChoices(r io.Reader) ([]Choice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading choices csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("choices sheet is empty")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}
	nameIdx, ok := cols[colName]
	if !ok {
		return nil, fmt.Errorf("choices sheet has no %q column", colName)
	}
	groupIdx, ok := cols[colGroup]
	if !ok {
		return nil, fmt.Errorf("choices sheet has no %q column", colGroup)
	}

	field := func(rec []string, idx int, ok bool) string {
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}
	techIdx, techOK := cols[colTechSix]
	sciIdx, sciOK := cols[colSciSix]

	var choices []Choice
	for _, rec := range records[1:] {
		name := field(rec, nameIdx, true)
		group := field(rec, groupIdx, true)
		if name == "" || group == "" {
			continue
		}
		choices = append(choices, Choice{
			Name:  name,
			Group: group,
			Tech:  field(rec, techIdx, techOK),
			Sci:   field(rec, sciIdx, sciOK),
		})
	}
	return choices, nil
}
