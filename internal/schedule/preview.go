package schedule

import (
	"context"
	"strings"
)

const DefaultPreviewRows = 10

// Preview is the raw head of a schedule file.
type Preview struct {
	Encoding string
	Headers  []string
	// Mapping holds the canonical field for each recognized header.
	Mapping   map[string]Field
	Rows      [][]string
	TotalRows int
}

// Preview returns the header and up to maxRows raw records. Malformed
// records are included as a single cell holding the raw line.
func (p *Parser) Preview(ctx context.Context, path string, maxRows int) (*Preview, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	data, err := readScheduleFile(path)
	if err != nil {
		return nil, err
	}
	text, enc, err := decodeText(data, p.legacy)
	if err != nil {
		return nil, err
	}

	var content []string
	for _, l := range splitLines(text) {
		if strings.TrimSpace(l) != "" {
			content = append(content, l)
		}
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}

	headers, err := splitLine(content[0])
	if err != nil {
		headers = []string{content[0]}
	}
	pv := &Preview{
		Encoding:  enc,
		Headers:   headers,
		Mapping:   make(map[string]Field),
		TotalRows: len(content) - 1,
	}
	for _, h := range headers {
		if f, ok := CanonicalField(h); ok {
			pv.Mapping[h] = f
		}
	}
	for _, l := range content[1:] {
		if len(pv.Rows) >= maxRows {
			break
		}
		if err := ctx.Err(); err != nil {
			return pv, err
		}
		cells, err := splitLine(l)
		if err != nil {
			cells = []string{l}
		}
		pv.Rows = append(pv.Rows, cells)
	}
	return pv, nil
}
