package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/renattele/itis-schedule/internal/grid"
	appLog "github.com/renattele/itis-schedule/internal/log"
)

// ParseError indicates the grid does not match the expected schedule
// layout.
type ParseError struct {
	Row    int // 1-based grid row, 0 when the problem is not row-bound
	Reason string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parsing schedule row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("parsing schedule: %s", e.Reason)
}

// dayMarkers maps day-of-week labels found in the leading column to
// weekdays. The sheet letter-spaces and decorates them ("*С Р Е Д А*"),
// which normalizeDayLabel strips before lookup.
var dayMarkers = map[string]time.Weekday{
	"ПОНЕДЕЛЬНИК": time.Monday,
	"ВТОРНИК":     time.Tuesday,
	"СРЕДА":       time.Wednesday,
	"ЧЕТВЕРГ":     time.Thursday,
	"ПЯТНИЦА":     time.Friday,
	"СУББОТА":     time.Saturday,
	"ВОСКРЕСЕНЬЕ": time.Sunday,
	"MONDAY":      time.Monday,
	"TUESDAY":     time.Tuesday,
	"WEDNESDAY":   time.Wednesday,
	"THURSDAY":    time.Thursday,
	"FRIDAY":      time.Friday,
	"SATURDAY":    time.Saturday,
	"SUNDAY":      time.Sunday,
}

// timeRangeRe matches slot labels like "08.00-09.30" or "8:00 - 9:30".
var timeRangeRe = regexp.MustCompile(`(\d{1,2})[.:](\d{2})\s*[-–]\s*(\d{1,2})[.:](\d{2})`)

const (
	groupHeaderRow = 1 // 0-based row holding group identifiers
	firstGroupCol  = 2 // columns left of this hold day and time labels
)

// Parse converts a raw grid into a Schedule. Pure function of its
// inputs: no I/O, deterministic.
//
// Layout conventions (fixed by the source sheet): row 1 holds group
// identifiers from column 2 rightward; column 0 carries day-of-week
// markers that apply to all following rows until the next marker;
// column 1 carries the period time range, resolved against the slot
// table by start time.
func Parse(g *grid.Grid, table SlotTable) (Schedule, error) {
	if g.Rows() <= groupHeaderRow+1 {
		return nil, &ParseError{Reason: "grid has too few rows to contain a schedule"}
	}

	groups, err := groupColumns(g)
	if err != nil {
		return nil, err
	}

	sched := make(Schedule, len(groups))
	for _, gid := range groups {
		sched[gid] = nil
	}

	var currentDay time.Weekday
	haveDay := false

	for r := groupHeaderRow + 1; r < g.Rows(); r++ {
		if day, ok := dayForLabel(g.Cell(r, 0).Value); ok {
			currentDay = day
			haveDay = true
		}

		m := timeRangeRe.FindStringSubmatch(g.Cell(r, 1).Value)
		if m == nil {
			continue
		}
		if !haveDay {
			return nil, &ParseError{Row: r + 1, Reason: "time slot row appears before any day-of-week marker"}
		}

		start := ClockTime{Hour: atoi(m[1]), Minute: atoi(m[2])}
		period, ok := table.PeriodForStart(start)
		if !ok {
			return nil, &ParseError{Row: r + 1, Reason: fmt.Sprintf("time range %q does not start any known period", m[0])}
		}
		slot := Slot{Day: currentDay, Period: period}

		for col, gid := range groups {
			cell := g.Cell(r, col)
			value := strings.TrimSpace(cell.Value)
			if value == "" {
				continue
			}

			contents := parseCell(value, cell.Link, sharedAcrossGroups(g, r, col, groups, value))
			if len(contents) == 0 {
				continue
			}

			sched[gid] = append(sched[gid], Lesson{
				Slot:     slot,
				Group:    gid,
				Contents: contents,
			})
		}
	}

	total := 0
	for _, lessons := range sched {
		total += len(lessons)
	}
	appLog.Info("schedule parsed", "groups", len(sched), "lessons", total)

	return sched, nil
}

// groupColumns reads the header row and maps column index to group id.
func groupColumns(g *grid.Grid) (map[int]string, error) {
	groups := make(map[int]string)
	for c := firstGroupCol; c < g.Cols(groupHeaderRow); c++ {
		gid := strings.TrimSpace(g.Cell(groupHeaderRow, c).Value)
		if gid == "" {
			continue
		}
		groups[c] = gid
	}
	if len(groups) == 0 {
		return nil, &ParseError{Row: groupHeaderRow + 1, Reason: "header row contains no group identifiers"}
	}
	return groups, nil
}

// sharedAcrossGroups reports whether the same cell text appears under
// another group column in the same row. Shared cells are joint lectures
// (merged ranges in the XLSX export end up duplicated across columns).
func sharedAcrossGroups(g *grid.Grid, row, col int, groups map[int]string, value string) bool {
	for other := range groups {
		if other == col {
			continue
		}
		if strings.TrimSpace(g.Cell(row, other).Value) == value {
			return true
		}
	}
	return false
}

func dayForLabel(label string) (time.Weekday, bool) {
	normalized := normalizeDayLabel(label)
	if normalized == "" {
		return 0, false
	}
	for marker, day := range dayMarkers {
		if strings.Contains(normalized, marker) {
			return day, true
		}
	}
	return 0, false
}

// normalizeDayLabel strips spacing and decoration: "*С Р Е Д А*" → "СРЕДА".
func normalizeDayLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r == ' ', r == '\t', r == '\n', r == '*':
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
