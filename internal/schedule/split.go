package schedule

import "strings"

// splitLine splits one CSV record on commas outside double quotes. A doubled
// quote inside a quoted field yields a literal quote. Fields are trimmed.
// Quoted fields may not span lines.
func splitLine(line string) ([]string, error) {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, ErrUnterminatedQuote
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields, nil
}

// splitLines breaks text into lines, dropping carriage returns. Blank lines
// are kept so line numbers stay accurate; callers skip them.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
