package schedule

import (
	"regexp"
	"strings"
)

// Cell-content heuristics. Schedule cells are free text of the shape
//
//	Математический анализ,
//	Зубкова С.К.
//	1306
//
// possibly with several stacked blocks (alternating weeks) or an
// elective list headed by "Дисциплины по выбору:".
var (
	instructorRe = regexp.MustCompile(`[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s?(?:[А-ЯЁ]\.?)?`)
	roomRe       = regexp.MustCompile(`(?:\bв\s+)?(\d{3,4}(?:-\d{3,4})?)\b`)
	roomOnlyRe   = regexp.MustCompile(`^\d{3,4}(?:-\d{3,4})?$`)
	oddRe        = regexp.MustCompile(`\bodd\b`)
	evenRe       = regexp.MustCompile(`\beven\b`)
)

const electiveMarker = "дисциплины по выбору"

// parseCell turns one grid cell into its Content records. shared tells
// whether the same text appears under another group column in the same
// row, which feeds the lecture/practice fallback.
func parseCell(raw, link string, shared bool) []Content {
	blocks := splitBlocks(raw)
	if len(blocks) == 0 {
		return nil
	}

	// Elective list: the header line is dropped and every following line
	// is a separate every-week lesson.
	if strings.Contains(strings.ToLower(blocks[0][0]), electiveMarker) {
		var out []Content
		for _, block := range blocks {
			for _, line := range block {
				if strings.Contains(strings.ToLower(line), electiveMarker) {
					continue
				}
				c := splitSingleLine(line)
				if c.Subject == "" {
					continue
				}
				c.Notes = strings.TrimSpace(c.Notes + " (по выбору)")
				c.Link = link
				c.Parity = ParityEvery
				c.Type = detectType(c, shared)
				out = append(out, c)
			}
		}
		return out
	}

	contents := make([]Content, 0, len(blocks))
	for _, block := range blocks {
		c := parseBlock(block)
		if c.Subject == "" {
			continue
		}
		c.Link = link
		c.Parity = detectParity(strings.Join(block, " "))
		contents = append(contents, c)
	}

	// Two stacked blocks without explicit cues alternate weeks: the first
	// is the odd-week lesson, the second the even-week one.
	if len(contents) == 2 && contents[0].Parity == ParityEvery && contents[1].Parity == ParityEvery {
		contents[0].Parity = ParityOdd
		contents[1].Parity = ParityEven
	}

	for i := range contents {
		contents[i].Type = detectType(contents[i], shared)
	}
	return contents
}

// splitBlocks splits cell text into line groups separated by blank lines.
func splitBlocks(raw string) [][]string {
	var blocks [][]string
	var current []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// parseBlock extracts subject, instructor, room and notes from one block.
func parseBlock(lines []string) Content {
	if len(lines) == 1 {
		return splitSingleLine(lines[0])
	}

	c := Content{Subject: strings.TrimSpace(strings.TrimSuffix(lines[0], ","))}
	var notes []string

	for _, line := range lines[1:] {
		clean := strings.TrimSpace(strings.TrimSuffix(line, ","))
		if clean == "" {
			continue
		}

		switch {
		case roomOnlyRe.MatchString(clean):
			c.Room = clean

		case instructorRe.MatchString(clean):
			loc := instructorRe.FindStringIndex(clean)
			c.Instructor = strings.TrimSpace(clean[loc[0]:loc[1]])
			remainder := strings.TrimSpace(clean[:loc[0]] + " " + clean[loc[1]:])
			if remainder != "" {
				if m := roomRe.FindStringSubmatch(remainder); m != nil {
					c.Room = m[1]
				}
				notes = append(notes, remainder)
			}

		default:
			if m := roomRe.FindStringSubmatch(clean); m != nil {
				c.Room = m[1]
			}
			notes = append(notes, clean)
		}
	}

	c.Notes = strings.Join(notes, "; ")
	return c
}

// splitSingleLine handles one-line lessons such as
// "Проектирование веб-интерфейсов, Якушенкова А.Д. в 1305".
func splitSingleLine(line string) Content {
	var c Content

	if loc := instructorRe.FindStringIndex(line); loc != nil {
		c.Instructor = strings.TrimSpace(line[loc[0]:loc[1]])
		c.Subject = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[:loc[0]]), ","))
		remainder := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line[loc[1]:]), ","))

		if m := roomRe.FindStringSubmatchIndex(remainder); m != nil {
			c.Room = remainder[m[2]:m[3]]
			c.Notes = strings.TrimSpace(remainder[:m[0]] + " " + remainder[m[1]:])
		} else {
			c.Notes = remainder
		}
		return c
	}

	if m := roomRe.FindStringSubmatchIndex(line); m != nil {
		c.Room = line[m[2]:m[3]]
		c.Subject = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[:m[0]]), ","))
		c.Notes = strings.TrimSpace(line[m[1]:])
		return c
	}

	c.Subject = strings.TrimSpace(strings.TrimSuffix(line, ","))
	return c
}

// detectParity finds explicit week-parity cues in the block text.
// "нечет" is checked before "чет" since the former contains the latter.
func detectParity(text string) Parity {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "нечет"), strings.Contains(lower, "неч."), oddRe.MatchString(lower):
		return ParityOdd
	case strings.Contains(lower, "четн"), strings.Contains(lower, "чет."), strings.Contains(lower, "чет "), evenRe.MatchString(lower):
		return ParityEven
	}
	return ParityEvery
}

// detectType classifies a lesson as lecture or practice. Cells shared
// across group columns default to lectures, private cells to practices.
func detectType(c Content, shared bool) string {
	text := strings.ToLower(c.Subject + " " + c.Instructor + " " + c.Notes)

	for _, cue := range []string{"лекци", " лек.", " лек ", "(лек."} {
		if strings.Contains(text, cue) {
			return "Лекц"
		}
	}
	for _, cue := range []string{"практик", " пр.", " пр ", "(пр.", "выбору"} {
		if strings.Contains(text, cue) {
			return "Прак"
		}
	}

	if shared {
		return "Лекц"
	}
	return "Прак"
}
