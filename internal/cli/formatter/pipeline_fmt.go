package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/schedule"
)

// maxListed bounds the unmatched ids and failures printed in summaries.
const maxListed = 10

// FormatPipelineResult renders the outcome of one run: stage counts,
// failures and the warnings from the audit log.
func FormatPipelineResult(res *app.PipelineResult) string {
	var b strings.Builder

	fields := []Field{
		{"Outcome", OutcomePill(res)},
		{"Stage", string(res.Stage)},
		{"Elapsed", Elapsed(res.Elapsed())},
		{"Rows", Count(len(res.Rows))},
	}
	if m := res.Match; m != nil {
		fields = append(fields, Field{"Matched", fmt.Sprintf("%s of %s (%s)", Count(m.Matched), Count(m.Total), Percent(m.MatchRate()))})
	}
	if w := res.Write; w != nil {
		fields = append(fields, Field{"Properties", fmt.Sprintf("%s written, %s skipped, %s failed", Count(w.Success), Count(w.Skipped), Count(w.Failed))})
	}
	if s := res.Sets; s != nil {
		fields = append(fields, Field{"Selection sets", fmt.Sprintf("%s sets, %s items, %s folders", Count(s.SetCount), Count(s.TotalItemCount), Count(s.FolderCount))})
	}
	if t := res.Tasks; t != nil {
		fields = append(fields, Field{"Tasks", fmt.Sprintf("%s created, %s linked, %s unlinked", Count(t.TaskCount), Count(t.LinkedCount), Count(t.UnlinkedCount))})
	}
	if res.OptionsHash != "" {
		fields = append(fields, Field{"Options", Dim(res.OptionsHash)})
	}
	b.WriteString(RenderFields(fields))

	if res.ErrorMessage != "" {
		b.WriteString("\n\n")
		b.WriteString(StyleRed.Render(res.ErrorMessage))
	}

	if m := res.Match; m != nil && len(m.UnmatchedIDs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(Bold("Unmatched sync ids"))
		b.WriteString("\n")
		b.WriteString(listed(m.UnmatchedIDs))
	}

	var failures []string
	if w := res.Write; w != nil {
		for _, f := range w.FailedItems {
			failures = append(failures, fmt.Sprintf("property %s: %s", f.SyncID, f.Reason))
		}
	}
	if s := res.Sets; s != nil {
		for _, f := range s.FailedSets {
			failures = append(failures, fmt.Sprintf("set %s: %s", f.Key, f.Reason))
		}
	}
	if t := res.Tasks; t != nil {
		for _, f := range t.FailedTasks {
			failures = append(failures, fmt.Sprintf("task %s: %s", f.SyncID, f.Reason))
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(Bold("Failures"))
		b.WriteString("\n")
		b.WriteString(listed(failures))
	}

	if warnings := res.LogsAt(app.LogWarning); len(warnings) > 0 {
		b.WriteString("\n\n")
		b.WriteString(Bold("Log"))
		for _, e := range warnings {
			b.WriteString("\n")
			b.WriteString(FormatLogEntry(e))
		}
	}

	return RenderBox("Pipeline run", Bold(res.Summary())+"\n\n"+b.String())
}

// FormatLogEntry renders one audit entry with its level colored.
func FormatLogEntry(e app.LogEntry) string {
	return fmt.Sprintf("%s %s %s %s",
		Dim(e.Timestamp.Format("15:04:05.000")),
		LevelStyle(e.Level).Render(fmt.Sprintf("%-7s", e.Level)),
		StyleBlue.Render(string(e.Stage)),
		e.Message)
}

// FormatValidation renders errors, warnings and info lines of a report.
func FormatValidation(title string, v *app.ValidationResult) string {
	var b strings.Builder
	if v.IsValid() {
		b.WriteString(StyleGreen.Render("✔ valid"))
	} else {
		b.WriteString(StyleRed.Render(fmt.Sprintf("✖ %d errors", len(v.Errors))))
	}
	for _, e := range v.Errors {
		b.WriteString("\n" + StyleRed.Render("error   ") + e)
	}
	for _, w := range v.Warnings {
		b.WriteString("\n" + StyleYellow.Render("warning ") + w)
	}
	for _, i := range v.Info {
		b.WriteString("\n" + Dim("info    ") + i)
	}
	return RenderBox(title, b.String())
}

// FormatEnvironment renders what the loaded document holds.
func FormatEnvironment(rep *app.EnvironmentReport) string {
	fields := RenderFields([]Field{
		{"Models", Count(rep.Models)},
		{"Nodes", Count(rep.Nodes)},
		{"With geometry", Count(rep.GeometryNodes)},
		{"Selection items", Count(rep.SelectionItems)},
		{"Tasks", Count(rep.Tasks)},
	})
	return fields + "\n\n" + FormatValidation("Environment", rep.Validation)
}

// FormatPreview renders the header mapping and the first rows of a file.
func FormatPreview(p *schedule.Preview) string {
	var b strings.Builder
	b.WriteString(RenderFields([]Field{
		{"Encoding", p.Encoding},
		{"Data rows", Count(p.TotalRows)},
	}))
	b.WriteString("\n\n")

	mapping := make([][]string, 0, len(p.Headers))
	for _, h := range p.Headers {
		field := Dim("custom")
		if f, ok := p.Mapping[h]; ok {
			field = StyleGreen.Render(string(f))
		}
		mapping = append(mapping, []string{h, field})
	}
	b.WriteString(RenderTable([]string{"COLUMN", "FIELD"}, mapping))

	if len(p.Rows) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderTable(p.Headers, p.Rows))
	}
	return b.String()
}

// FormatMatchPreview renders a trial match of a schedule.
func FormatMatchPreview(m *app.MatchPreview) string {
	r := m.Match
	var b strings.Builder
	b.WriteString(RenderFields([]Field{
		{"Rows", Count(m.Rows)},
		{"Matched", fmt.Sprintf("%s (%s)", Count(r.Matched), Percent(r.MatchRate()))},
		{"Not found", Count(r.NotFound)},
		{"Errors", Count(r.Errors)},
		{"Cache", YesNo(r.CacheUsed)},
	}))
	if len(m.SampleMisses) > 0 {
		b.WriteString("\n\n")
		b.WriteString(Bold("Sample misses"))
		b.WriteString("\n")
		b.WriteString(listed(m.SampleMisses))
	}
	return RenderBox("Match preview", b.String())
}

func listed(items []string) string {
	shown := items
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	var b strings.Builder
	for i, s := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  • " + s)
	}
	if extra := len(items) - len(shown); extra > 0 {
		b.WriteString("\n" + Dim(fmt.Sprintf("  … and %s more", Count(extra))))
	}
	return b.String()
}
