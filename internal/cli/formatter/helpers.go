package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		return boxStyle.Render(titleRendered + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Field is one label/value line of a summary block.
type Field struct {
	Label string
	Value string
}

// RenderFields aligns labels into a column followed by their values.
func RenderFields(fields []Field) string {
	width := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Label); w > width {
			width = w
		}
	}
	var b strings.Builder
	for i, f := range fields {
		pad := width - lipgloss.Width(f.Label)
		b.WriteString(Dim(f.Label + ":"))
		b.WriteString(strings.Repeat(" ", pad+1))
		b.WriteString(f.Value)
		if i < len(fields)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Count renders n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Percent renders a 0-100 rate with one decimal.
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}

// Elapsed renders a duration rounded for display.
func Elapsed(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

// DateOrDash renders t as a calendar date, or "--" when unset.
func DateOrDash(t *time.Time) string {
	if t == nil {
		return Dim("--")
	}
	return t.Format("2006-01-02")
}

// YesNo renders a checkmark for true and a dim cross for false.
func YesNo(v bool) string {
	if v {
		return StyleGreen.Render("✔")
	}
	return Dim("✖")
}
