// Package ical expands a parsed schedule into dated events and
// serializes one iCalendar document per group.
package ical

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "github.com/renattele/itis-schedule/internal/log"
	"github.com/renattele/itis-schedule/internal/schedule"
)

// GenerationError indicates the schedule could not be expanded into
// calendar events.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generating calendars: %s: %v", e.Reason, e.Err)
	}
	return "generating calendars: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Range is the inclusive semester date span. Start and End are civil
// dates at midnight in the generation timezone.
type Range struct {
	Start time.Time
	End   time.Time
}

// Options controls event generation.
type Options struct {
	// Location is the fixed civil timezone of the institution.
	Location *time.Location
	// OmitType disables the "[Type] " summary prefix.
	OmitType bool
	// Now stamps DTSTAMP/CREATED; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Event is one concrete dated occurrence.
type Event struct {
	UID         string
	Start       time.Time
	End         time.Time
	Summary     string
	Location    string
	Description string
	URL         string
}

// Generate expands every lesson of every group into dated events and
// serializes one calendar per group. Nothing is written to disk here;
// the caller only writes files once the whole map has been built, so a
// failing group aborts the run before any output exists.
func Generate(sched schedule.Schedule, table schedule.SlotTable, rng Range, opts Options) (map[string][]byte, error) {
	opts = opts.withDefaults()
	if rng.End.Before(rng.Start) {
		return nil, &GenerationError{Reason: fmt.Sprintf("semester end %s precedes start %s",
			rng.End.Format("2006-01-02"), rng.Start.Format("2006-01-02"))}
	}

	calendars := make(map[string][]byte, len(sched))
	groups := sched.Groups()
	sort.Strings(groups)

	for _, group := range groups {
		events, err := ExpandGroup(group, sched[group], table, rng, opts)
		if err != nil {
			return nil, err
		}
		calendars[group] = Render(group, events, opts)
		appLog.Info("calendar generated", "group", group, "events", len(events))
	}

	return calendars, nil
}

// ExpandGroup expands one group's lessons into dated events, ordered by
// start time.
func ExpandGroup(group string, lessons []schedule.Lesson, table schedule.SlotTable, rng Range, opts Options) ([]Event, error) {
	opts = opts.withDefaults()

	var events []Event

	for _, lesson := range lessons {
		span, ok := table.Span(lesson.Slot.Period)
		if !ok {
			return nil, &GenerationError{Reason: fmt.Sprintf("period %d has no time mapping", lesson.Slot.Period)}
		}

		for _, content := range lesson.Contents {
			dates, err := occurrenceDates(lesson.Slot.Day, content.Parity, rng, span, opts.Location)
			if err != nil {
				return nil, err
			}
			for _, start := range dates {
				events = append(events, makeEvent(group, lesson, content, span, start, opts))
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].UID < events[j].UID
	})
	return events, nil
}

// occurrenceDates lists event start timestamps for one content record:
// every date in range on the slot weekday, filtered by week parity.
// Expansion runs through an rrule set (FREQ=WEEKLY, INTERVAL 1 or 2).
func occurrenceDates(day time.Weekday, parity schedule.Parity, rng Range, span schedule.Span, loc *time.Location) ([]time.Time, error) {
	first := firstOnWeekday(rng.Start, day)

	interval := 1
	if parity != schedule.ParityEvery {
		interval = 2
		// Shift one week forward when the first matching date falls on
		// the wrong parity.
		if weekParity(first, rng.Start) != parity {
			first = first.AddDate(0, 0, 7)
		}
	}
	if first.After(rng.End) {
		return nil, nil
	}

	dtstart := time.Date(first.Year(), first.Month(), first.Day(), span.Start.Hour, span.Start.Minute, 0, 0, loc)
	until := time.Date(rng.End.Year(), rng.End.Month(), rng.End.Day(), 23, 59, 59, 0, loc)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: interval,
		Dtstart:  dtstart,
		Until:    until,
	})
	if err != nil {
		return nil, &GenerationError{Reason: "building recurrence rule", Err: err}
	}

	return rule.All(), nil
}

// firstOnWeekday returns the first date on or after start that falls on
// the given weekday.
func firstOnWeekday(start time.Time, day time.Weekday) time.Time {
	offset := (int(day) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, offset)
}

// weekParity reports whether a date falls on an odd or even semester
// week. Weeks begin on Monday; the week containing the semester start is
// week 1 and odd.
func weekParity(date, semesterStart time.Time) schedule.Parity {
	weeks := int(mondayOf(date).Sub(mondayOf(semesterStart)).Hours()/24/7) + 1
	if weeks%2 != 0 {
		return schedule.ParityOdd
	}
	return schedule.ParityEven
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) - int(time.Monday) + 7) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

func makeEvent(group string, lesson schedule.Lesson, content schedule.Content, span schedule.Span, start time.Time, opts Options) Event {
	end := time.Date(start.Year(), start.Month(), start.Day(), span.End.Hour, span.End.Minute, 0, 0, start.Location())

	summary := content.Subject
	if !opts.OmitType && content.Type != "" {
		summary = "[" + content.Type + "] " + summary
	}

	var desc []string
	if content.Instructor != "" {
		desc = append(desc, "Преподаватель: "+content.Instructor)
	}
	if content.Notes != "" {
		desc = append(desc, content.Notes)
	}

	location := content.Room
	if content.Link != "" {
		location = content.Link
	}

	return Event{
		UID:         eventUID(group, lesson.Slot, content.Subject, start),
		Start:       start,
		End:         end,
		Summary:     summary,
		Location:    location,
		Description: strings.Join(desc, "\n"),
		URL:         content.Link,
	}
}

// eventUID derives a deterministic identifier so regenerated files keep
// stable UIDs across runs.
func eventUID(group string, slot schedule.Slot, subject string, start time.Time) string {
	raw := fmt.Sprintf("%s|%d|%d|%s|%s", group, int(slot.Day), slot.Period, subject, start.Format("2006-01-02"))
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:]) + "@itis-schedule"
}

// Render serializes a named set of events as an RFC 5545 document. The
// library handles text escaping and line folding.
func Render(name string, events []Event, opts Options) []byte {
	opts = opts.withDefaults()

	cal := ics.NewCalendar()
	cal.SetProductId("-//ITIS Schedule Generator//EN")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(opts.Location.String())

	now := opts.Now()
	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(now)
		ve.SetCreatedTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Summary)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.URL != "" {
			ve.SetURL(ev.URL)
		}
	}

	return []byte(cal.Serialize())
}
