package ical

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apognu/gocal"
	ics "github.com/arran4/golang-ical"

	"github.com/renattele/itis-schedule/internal/schedule"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("loading Europe/Moscow: %v", err)
	}
	return loc
}

func testOpts(loc *time.Location) Options {
	return Options{
		Location: loc,
		Now:      func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func date(loc *time.Location, y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func lesson(day time.Weekday, period int, group string, contents ...schedule.Content) schedule.Lesson {
	return schedule.Lesson{
		Slot:     schedule.Slot{Day: day, Period: period},
		Group:    group,
		Contents: contents,
	}
}

// Semester 2026-02-09 (a Monday) to 2026-02-15: a Monday period-1
// every-week lesson yields exactly one event at 08:00-09:30.
func TestExpandSingleWeek(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 2, 15)}

	lessons := []schedule.Lesson{
		lesson(time.Monday, 1, "A", schedule.Content{Subject: "Math", Parity: schedule.ParityEvery}),
	}

	events, err := ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	wantStart := time.Date(2026, 2, 9, 8, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 2, 9, 9, 30, 0, 0, loc)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", ev.Start, wantStart)
	}
	if !ev.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", ev.End, wantEnd)
	}
}

// Two stacked contents (odd then even) over a two-week range produce one
// event each: the odd-week lesson on the first Monday, the even-week one
// on the second.
func TestExpandStackedParity(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 2, 22)}

	lessons := []schedule.Lesson{
		lesson(time.Monday, 1, "A",
			schedule.Content{Subject: "Math", Parity: schedule.ParityOdd},
			schedule.Content{Subject: "Physics", Parity: schedule.ParityEven},
		),
	}

	events, err := ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].Summary != "Math" || !events[0].Start.Equal(time.Date(2026, 2, 9, 8, 0, 0, 0, loc)) {
		t.Errorf("first event = %q at %v, want Math on 2026-02-09", events[0].Summary, events[0].Start)
	}
	if events[1].Summary != "Physics" || !events[1].Start.Equal(time.Date(2026, 2, 16, 8, 0, 0, 0, loc)) {
		t.Errorf("second event = %q at %v, want Physics on 2026-02-16", events[1].Summary, events[1].Start)
	}
}

func TestExpandWeekdayAndTimesInvariant(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 6, 6)}
	table := schedule.DefaultSlotTable()

	lessons := []schedule.Lesson{
		lesson(time.Wednesday, 3, "A", schedule.Content{Subject: "Databases", Parity: schedule.ParityEvery}),
	}

	events, err := ExpandGroup("A", lessons, table, rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}

	// Count Wednesdays in range independently.
	want := 0
	for d := rng.Start; !d.After(rng.End); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Wednesday {
			want++
		}
	}
	if len(events) != want {
		t.Fatalf("expected %d events, got %d", want, len(events))
	}

	for _, ev := range events {
		if ev.Start.Weekday() != time.Wednesday {
			t.Errorf("event on %v, want Wednesday", ev.Start.Weekday())
		}
		if ev.Start.Before(rng.Start) || ev.Start.After(rng.End.AddDate(0, 0, 1)) {
			t.Errorf("event %v outside semester range", ev.Start)
		}
		if ev.Start.Hour() != 11 || ev.Start.Minute() != 20 {
			t.Errorf("start time = %02d:%02d, want 11:20", ev.Start.Hour(), ev.Start.Minute())
		}
		if ev.End.Hour() != 12 || ev.End.Minute() != 50 {
			t.Errorf("end time = %02d:%02d, want 12:50", ev.End.Hour(), ev.End.Minute())
		}
	}
}

// Odd-week content emits only on odd semester weeks, spaced 14 days.
func TestExpandOddWeeksOnly(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 4, 30)}

	lessons := []schedule.Lesson{
		lesson(time.Friday, 2, "A", schedule.Content{Subject: "Seminar", Parity: schedule.ParityOdd}),
	}

	events, err := ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected events, got none")
	}

	for i, ev := range events {
		if got := weekParity(ev.Start, rng.Start); got != schedule.ParityOdd {
			t.Errorf("event %v falls on %s week", ev.Start, got)
		}
		if i > 0 {
			if gap := ev.Start.Sub(events[i-1].Start); gap != 14*24*time.Hour {
				t.Errorf("gap between events = %v, want 14 days", gap)
			}
		}
	}

	// First odd Friday is in week 1: 2026-02-13.
	if !events[0].Start.Equal(time.Date(2026, 2, 13, 9, 40, 0, 0, loc)) {
		t.Errorf("first event at %v, want 2026-02-13 09:40", events[0].Start)
	}
}

// A lesson whose first matching weekday lands on the wrong parity starts
// one week later.
func TestExpandEvenWeekStartsSecondWeek(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 3, 1)}

	lessons := []schedule.Lesson{
		lesson(time.Tuesday, 1, "A", schedule.Content{Subject: "Lab", Parity: schedule.ParityEven}),
	}

	events, err := ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Start.Equal(time.Date(2026, 2, 17, 8, 0, 0, 0, loc)) {
		t.Errorf("event at %v, want 2026-02-17 (week 2)", events[0].Start)
	}
}

func TestGenerateEndBeforeStart(t *testing.T) {
	loc := moscow(t)
	sched := schedule.Schedule{
		"A": {lesson(time.Monday, 1, "A", schedule.Content{Subject: "Math", Parity: schedule.ParityEvery})},
	}
	rng := Range{Start: date(loc, 2026, 6, 6), End: date(loc, 2026, 2, 9)}

	calendars, err := Generate(sched, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("error type = %T, want *GenerationError", err)
	}
	if calendars != nil {
		t.Errorf("calendars = %v, want nil on error", calendars)
	}
}

func TestGenerateUnmappedPeriod(t *testing.T) {
	loc := moscow(t)
	sched := schedule.Schedule{
		"A": {lesson(time.Monday, 99, "A", schedule.Content{Subject: "Math", Parity: schedule.ParityEvery})},
	}
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 6, 6)}

	_, err := Generate(sched, schedule.DefaultSlotTable(), rng, testOpts(loc))
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *GenerationError for unmapped period", err)
	}
}

func TestGenerateSummaryLocationDescription(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 2, 15)}

	lessons := []schedule.Lesson{
		lesson(time.Monday, 1, "A", schedule.Content{
			Subject:    "Математический анализ",
			Type:       "Лекц",
			Room:       "1306",
			Instructor: "Зубкова С.К.",
			Parity:     schedule.ParityEvery,
		}),
	}

	events, err := ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	ev := events[0]
	if ev.Summary != "[Лекц] Математический анализ" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.Location != "1306" {
		t.Errorf("location = %q", ev.Location)
	}
	if ev.Description != "Преподаватель: Зубкова С.К." {
		t.Errorf("description = %q", ev.Description)
	}

	opts := testOpts(loc)
	opts.OmitType = true
	events, err = ExpandGroup("A", lessons, schedule.DefaultSlotTable(), rng, opts)
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}
	if events[0].Summary != "Математический анализ" {
		t.Errorf("summary with OmitType = %q", events[0].Summary)
	}
}

// A generated calendar re-parsed by an independent reader yields the
// same events with matching timestamps.
func TestRoundTrip(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 3, 8)}
	table := schedule.DefaultSlotTable()
	opts := testOpts(loc)

	sched := schedule.Schedule{
		"11-301": {
			lesson(time.Monday, 1, "11-301", schedule.Content{Subject: "Матанализ", Type: "Лекц", Room: "1306", Parity: schedule.ParityEvery}),
			lesson(time.Thursday, 4, "11-301",
				schedule.Content{Subject: "Физика", Parity: schedule.ParityOdd},
				schedule.Content{Subject: "Химия", Parity: schedule.ParityEven},
			),
		},
	}

	events, err := ExpandGroup("11-301", sched["11-301"], table, rng, opts)
	if err != nil {
		t.Fatalf("ExpandGroup failed: %v", err)
	}

	calendars, err := Generate(sched, table, rng, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	data, ok := calendars["11-301"]
	if !ok {
		t.Fatal("calendar for 11-301 missing")
	}

	// Independent reader: gocal.
	start := rng.Start.AddDate(0, 0, -1)
	end := rng.End.AddDate(0, 0, 1)
	parser := gocal.NewParser(bytes.NewReader(data))
	parser.Start, parser.End = &start, &end
	if err := parser.Parse(); err != nil {
		t.Fatalf("gocal parse failed: %v", err)
	}
	if len(parser.Events) != len(events) {
		t.Fatalf("round-trip count = %d, want %d", len(parser.Events), len(events))
	}

	byUID := make(map[string]Event, len(events))
	for _, ev := range events {
		byUID[ev.UID] = ev
	}
	for _, got := range parser.Events {
		want, ok := byUID[got.Uid]
		if !ok {
			t.Errorf("unexpected UID %q in output", got.Uid)
			continue
		}
		if got.Start == nil || !got.Start.Equal(want.Start) {
			t.Errorf("UID %s start = %v, want %v", got.Uid, got.Start, want.Start)
		}
		if got.End == nil || !got.End.Equal(want.End) {
			t.Errorf("UID %s end = %v, want %v", got.Uid, got.End, want.End)
		}
	}

	// The serializing library's own parser agrees on the count.
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("golang-ical re-parse failed: %v", err)
	}
	if got := len(cal.Events()); got != len(events) {
		t.Errorf("golang-ical event count = %d, want %d", got, len(events))
	}
}

// Regenerating with a pinned clock is byte-identical, so republished
// calendars keep stable UIDs.
func TestGenerateDeterministic(t *testing.T) {
	loc := moscow(t)
	rng := Range{Start: date(loc, 2026, 2, 9), End: date(loc, 2026, 3, 8)}
	sched := schedule.Schedule{
		"A": {lesson(time.Monday, 1, "A", schedule.Content{Subject: "Math", Parity: schedule.ParityEvery})},
	}

	first, err := Generate(sched, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate(sched, schedule.DefaultSlotTable(), rng, testOpts(loc))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !bytes.Equal(first["A"], second["A"]) {
		t.Error("two runs produced different calendars")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendars")
	calendars := map[string][]byte{
		"11-301": []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		"11-302": []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
	}

	if err := WriteFiles(dir, calendars); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	for group := range calendars {
		path := filepath.Join(dir, group+".ics")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", path, err)
		}
	}

	// Overwrite on regeneration.
	calendars["11-301"] = []byte("BEGIN:VCALENDAR\r\nX:2\r\nEND:VCALENDAR\r\n")
	if err := WriteFiles(dir, calendars); err != nil {
		t.Fatalf("WriteFiles rewrite failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "11-301.ics"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("X:2")) {
		t.Error("file was not overwritten")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("11-501"); got != "11-501.ics" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename("a/b\\c"); got != "a_b_c.ics" {
		t.Errorf("Filename = %q, want separators flattened", got)
	}
}
