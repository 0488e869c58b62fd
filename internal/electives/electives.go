package electives

import (
	"strings"

	"github.com/renattele/itis-schedule/internal/ical"
	appLog "github.com/renattele/itis-schedule/internal/log"
	"github.com/renattele/itis-schedule/internal/schedule"
)

// BuildStudentCalendars assembles one calendar per student: the
// mandatory lessons of the student's group plus the elective lessons
// matched from their choice strings. Keys of the returned map are file
// names (without directory), e.g. "11-304_Иванов Иван.ics".
//
// Students whose group is absent from the schedule are skipped with a
// log line; a generation failure aborts the whole build.
func BuildStudentCalendars(sched schedule.Schedule, table schedule.SlotTable, rng ical.Range, opts ical.Options, choices []Choice) (map[string][]byte, error) {
	pool := BuildPool(sched)
	appLog.Info("elective pool built", "entries", len(pool), "students", len(choices))

	out := make(map[string][]byte)
	for _, student := range choices {
		base, ok := sched[student.Group]
		if !ok {
			appLog.Info("choices reference unknown group, skipping student", "group", student.Group, "student", student.Name)
			continue
		}

		lessons := personalLessons(student, base, pool)
		events, err := ical.ExpandGroup(student.Group, lessons, table, rng, opts)
		if err != nil {
			return nil, err
		}

		name := student.Group + "_" + sanitizeName(student.Name)
		out[name+".ics"] = ical.Render("Schedule for "+student.Name, events, opts)
	}
	return out, nil
}

// personalLessons drops the group's generic elective placeholders and
// appends the electives matched from the student's choice strings.
func personalLessons(student Choice, base []schedule.Lesson, pool []PoolEntry) []schedule.Lesson {
	var lessons []schedule.Lesson
	seen := make(map[string]struct{})

	for _, lesson := range base {
		var kept []schedule.Content
		for _, c := range lesson.Contents {
			if IsElective(c) {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			continue
		}
		lessons = append(lessons, schedule.Lesson{
			Slot:     lesson.Slot,
			Group:    lesson.Group,
			Contents: kept,
		})
	}

	for _, choice := range []string{student.Tech, student.Sci} {
		for _, entry := range Match(choice, pool) {
			key := entryKey(entry.Slot, entry.Content)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			lessons = append(lessons, schedule.Lesson{
				Slot:     entry.Slot,
				Group:    student.Group,
				Contents: []schedule.Content{entry.Content},
			})
		}
	}
	return lessons
}

// sanitizeName keeps letters, digits, spaces, dashes and underscores so
// student names produce safe file names.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		case isLetterOrDigit(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isLetterOrDigit(r rune) bool {
	return ('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') ||
		('а' <= r && r <= 'я') || ('А' <= r && r <= 'Я') || r == 'ё' || r == 'Ё'
}
