package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/progress"
	"golang.org/x/text/encoding"
)

const defaultCheckInterval = 100

// Stats counts what happened to each data line of a file.
type Stats struct {
	Lines   int
	Rows    int
	Dropped int
	Failed  int
}

// Document is a fully parsed schedule file.
type Document struct {
	Path     string
	Encoding string
	Headers  []string
	Rows     []*domain.ScheduleRow
	Stats    Stats
}

// Parser reads schedule CSV files into normalized rows.
type Parser struct {
	legacy        encoding.Encoding
	logger        *slog.Logger
	checkInterval int
}

type Option func(*Parser)

// WithLegacyEncoding sets the code page used when input is not UTF-8.
func WithLegacyEncoding(enc encoding.Encoding) Option {
	return func(p *Parser) { p.legacy = enc }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithCheckInterval sets how many rows are parsed between cancellation checks.
func WithCheckInterval(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.checkInterval = n
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		legacy:        DefaultLegacyEncoding,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		checkInterval: defaultCheckInterval,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ParseFile parses path and returns its rows in file order.
func (p *Parser) ParseFile(ctx context.Context, path string, sink progress.Sink) ([]*domain.ScheduleRow, error) {
	doc, err := p.Read(ctx, path, sink)
	if doc == nil {
		return nil, err
	}
	return doc.Rows, err
}

// Read parses path into a Document. On cancellation the rows parsed so far
// are returned together with the context error.
func (p *Parser) Read(ctx context.Context, path string, sink progress.Sink) (*Document, error) {
	data, err := readScheduleFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(ctx, data, sink)
	if doc != nil {
		doc.Path = path
	}
	return doc, err
}

func readScheduleFile(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no path given: %w", ErrFileNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Parse parses raw file content.
func (p *Parser) Parse(ctx context.Context, data []byte, sink progress.Sink) (*Document, error) {
	sink = progress.OrNoop(sink)

	text, enc, err := decodeText(data, p.legacy)
	if err != nil {
		return nil, err
	}

	lines := splitLines(text)
	type numbered struct {
		n    int
		text string
	}
	var content []numbered
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		content = append(content, numbered{n: i + 1, text: l})
	}
	if len(content) < 2 {
		return nil, ErrEmptyFile
	}

	headers, err := splitLine(content[0].text)
	if err != nil {
		return nil, fmt.Errorf("header row: %w", err)
	}
	cols := mapHeader(headers)
	if !cols.has(FieldSyncID) {
		return nil, fmt.Errorf("%s (accepted: %s): %w",
			FieldSyncID, strings.Join(columnSynonyms[FieldSyncID], ", "), ErrMissingRequiredColumn)
	}

	doc := &Document{Encoding: enc, Headers: headers}
	dataLines := content[1:]
	total := len(dataLines)
	doc.Stats.Lines = total

	for i, line := range dataLines {
		if i%p.checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return doc, err
			}
		}

		cells, err := splitLine(line.text)
		if err != nil {
			doc.Stats.Failed++
			p.logger.Warn("schedule row skipped", "line", line.n, "error", err)
			sink.Item(progress.Item{
				Stage:        progress.StageCsvParsing,
				CurrentIndex: i + 1,
				TotalCount:   total,
				CurrentItem:  fmt.Sprintf("line %d", line.n),
				Err:          err.Error(),
			})
			continue
		}

		row := buildRow(cols, cells)
		if row == nil {
			doc.Stats.Dropped++
			continue
		}
		row.LineNumber = line.n
		doc.Rows = append(doc.Rows, row)
		doc.Stats.Rows++
		sink.Item(progress.Item{
			Stage:        progress.StageCsvParsing,
			CurrentIndex: i + 1,
			TotalCount:   total,
			CurrentItem:  row.SyncID,
			Success:      true,
		})
	}

	p.logger.Info("schedule parsed",
		"encoding", enc,
		"lines", doc.Stats.Lines,
		"rows", doc.Stats.Rows,
		"dropped", doc.Stats.Dropped,
		"failed", doc.Stats.Failed,
	)
	return doc, nil
}

// buildRow maps one record onto a ScheduleRow. Rows without a sync id
// return nil.
func buildRow(cols columnMap, cells []string) *domain.ScheduleRow {
	syncID := cols.value(cells, FieldSyncID)
	if syncID == "" {
		return nil
	}

	row := domain.NewScheduleRow(syncID)
	row.TaskName = cols.value(cells, FieldTaskName)
	row.PlannedStart = ParseDate(cols.value(cells, FieldPlannedStart))
	row.PlannedEnd = ParseDate(cols.value(cells, FieldPlannedEnd))
	row.ActualStart = ParseDate(cols.value(cells, FieldActualStart))
	row.ActualEnd = ParseDate(cols.value(cells, FieldActualEnd))
	row.Cost = ParseDecimal(cols.value(cells, FieldCost))
	row.ProgressPercent = ParsePercent(cols.value(cells, FieldProgress))
	row.TaskType = domain.ParseTaskType(cols.value(cells, FieldTaskType))
	row.SetLevel = cols.value(cells, FieldSetLevel)
	row.ParentSet = cols.value(cells, FieldParentSet)

	if days, ok := ParseDays(cols.value(cells, FieldDuration)); ok {
		row.DurationDays = days
	} else {
		row.DurationDays = row.PlannedDurationDays()
	}

	for _, c := range cols.custom {
		if c.index >= len(cells) || cells[c.index] == "" {
			continue
		}
		if _, exists := row.CustomProperties.Get(c.header); exists {
			continue
		}
		row.CustomProperties.Set(c.header, cells[c.index])
	}
	return row
}
