// Package schedule holds the parsed schedule model and the grid parser
// that produces it.
package schedule

import "time"

// Parity says on which weeks of the semester a lesson occurs, relative
// to the week-numbering convention: weeks start on Monday and the week
// containing semester start is week 1 (odd).
type Parity string

const (
	ParityEvery Parity = "every"
	ParityOdd   Parity = "odd"
	ParityEven  Parity = "even"
)

// Slot is a fixed weekday + period pair. Times come from the SlotTable.
type Slot struct {
	Day    time.Weekday
	Period int
}

// Content is one lesson variant inside a grid cell. A cell holds several
// of these when alternating-week lessons are stacked or when it lists
// electives.
type Content struct {
	Subject    string
	Type       string // "Лекц", "Прак" or empty
	Room       string
	Instructor string
	Notes      string
	Link       string
	Parity     Parity
}

// Lesson is one parsed cell occurrence: a slot, the group it belongs to,
// and the cell's content records.
type Lesson struct {
	Slot     Slot
	Group    string
	Contents []Content
}

// Schedule maps a group identifier to its lessons, in grid order.
// Immutable after Parse.
type Schedule map[string][]Lesson

// Groups returns the group identifiers present, in no particular order.
func (s Schedule) Groups() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	return out
}
