package electives

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/renattele/itis-schedule/internal/schedule"
)

// PoolEntry is one elective lesson candidate with a single content
// record, flattened out of the group schedule.
type PoolEntry struct {
	Slot    schedule.Slot
	Content schedule.Content
}

var (
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	// "Subject – Фамилия И.О." at the end of a choice string.
	choiceInstructorRe = regexp.MustCompile(`[–-]\s*([А-ЯЁ][а-яё]+)\s+[А-ЯЁ]\.`)
)

// stopWords are generic curriculum terms that would otherwise match
// nearly every lesson.
var stopWords = map[string]struct{}{
	"технологии": {}, "разработки": {}, "разработка": {}, "по": {}, "для": {},
	"начинающих": {}, "доп": {}, "главы": {}, "блок": {}, "семестр": {},
	"прикладные": {}, "задачи": {}, "интеллектуального": {}, "анализа": {},
	"данных": {}, "на": {}, "основы": {}, "программного": {}, "обеспечения": {},
	"систем": {}, "управлению": {}, "управление": {}, "приложений": {},
	"приложения": {}, "приложение": {}, "часть": {}, "мобильных": {},
	"архитектура": {}, "проектирование": {}, "занятия": {}, "вебинар": {},
	"вебинары": {}, "дисциплина": {}, "дисциплины": {}, "выбору": {},
}

// IsElective reports whether a content record is an elective slot
// rather than a mandatory class.
func IsElective(c schedule.Content) bool {
	text := strings.ToLower(c.Subject + " " + c.Instructor + " " + c.Notes)
	return strings.Contains(text, "по выбору") || strings.Contains(text, "практика лаборато")
}

// BuildPool collects elective lessons from third-year groups across the
// whole schedule, de-duplicated by slot and subject.
func BuildPool(sched schedule.Schedule) []PoolEntry {
	seen := make(map[string]struct{})
	var pool []PoolEntry

	for group, lessons := range sched {
		if !strings.HasPrefix(group, "11-3") {
			continue
		}
		for _, lesson := range lessons {
			for _, c := range lesson.Contents {
				if !IsElective(c) {
					continue
				}
				key := entryKey(lesson.Slot, c)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				pool = append(pool, PoolEntry{Slot: lesson.Slot, Content: c})
			}
		}
	}
	return pool
}

func entryKey(slot schedule.Slot, c schedule.Content) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d",
		strings.ToLower(c.Subject), c.Instructor, c.Parity, slot.Day, slot.Period)
}

// Match finds pool entries matching a free-text choice string such as
// "Django (Технологии разработки ПО) – Дубровец В.О.". An instructor
// surname hit is the strongest signal; otherwise keyword overlap after
// stop-word filtering decides.
func Match(choice string, pool []PoolEntry) []PoolEntry {
	if strings.TrimSpace(choice) == "" {
		return nil
	}

	surname := ""
	if m := choiceInstructorRe.FindStringSubmatch(choice); m != nil {
		surname = strings.ToLower(m[1])
	}
	keywords := extractKeywords(choice)

	var matches []PoolEntry
	for _, entry := range pool {
		c := entry.Content
		lessonTokens := extractKeywords(c.Subject + " " + c.Instructor + " " + c.Notes)

		if surname != "" {
			if _, ok := lessonTokens[surname]; ok {
				matches = append(matches, entry)
				continue
			}
		}
		if intersects(keywords, lessonTokens) {
			matches = append(matches, entry)
		}
	}
	return matches
}

// extractKeywords tokenizes a string into significant lowercase words:
// parenthesized block names dropped, punctuation stripped, stop words
// and short tokens (initials, prepositions) removed.
func extractKeywords(s string) map[string]struct{} {
	s = dropParens(s)
	s = nonWordRe.ReplaceAllString(strings.ToLower(s), " ")

	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, skip := stopWords[tok]; skip {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

func dropParens(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
