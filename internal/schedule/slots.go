package schedule

import "fmt"

// ClockTime is a civil wall-clock time without a date or zone.
type ClockTime struct {
	Hour   int
	Minute int
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Span is the start/end wall-clock pair of one period.
type Span struct {
	Start ClockTime
	End   ClockTime
}

// SlotTable maps period index to its fixed time span. It is constant
// configuration: built once and passed to the parser and generator.
type SlotTable struct {
	spans map[int]Span
}

// NewSlotTable builds a table from the given period spans.
func NewSlotTable(spans map[int]Span) SlotTable {
	copied := make(map[int]Span, len(spans))
	for p, s := range spans {
		copied[p] = s
	}
	return SlotTable{spans: copied}
}

// DefaultSlotTable returns the ITIS bell schedule: seven periods from
// 08:00 to 19:50 with a lunch gap after period 3.
func DefaultSlotTable() SlotTable {
	return NewSlotTable(map[int]Span{
		1: {Start: ClockTime{8, 0}, End: ClockTime{9, 30}},
		2: {Start: ClockTime{9, 40}, End: ClockTime{11, 10}},
		3: {Start: ClockTime{11, 20}, End: ClockTime{12, 50}},
		4: {Start: ClockTime{13, 20}, End: ClockTime{14, 50}},
		5: {Start: ClockTime{15, 0}, End: ClockTime{16, 30}},
		6: {Start: ClockTime{16, 40}, End: ClockTime{18, 10}},
		7: {Start: ClockTime{18, 20}, End: ClockTime{19, 50}},
	})
}

// Span returns the time span for a period.
func (t SlotTable) Span(period int) (Span, bool) {
	s, ok := t.spans[period]
	return s, ok
}

// PeriodForStart resolves a period by its start time. The sheet labels
// rows with time ranges rather than period numbers, so the parser maps
// a row to a slot through this lookup.
func (t SlotTable) PeriodForStart(start ClockTime) (int, bool) {
	for p, s := range t.spans {
		if s.Start == start {
			return p, true
		}
	}
	return 0, false
}
