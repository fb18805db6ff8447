package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/awp4d/internal/progress"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a progress bar like [████░░░░]  45%.
// The bar is colored based on share: green >66%, yellow 33-66%, red <33%.
func RenderProgress(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if width < 2 {
		width = 2
	}

	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}

// PhaseLine renders a stage boundary event as one progress line.
func PhaseLine(p progress.Phase, width int) string {
	return fmt.Sprintf("%s  %s  %s",
		RenderProgress(float64(p.Percentage)/100, width),
		StyleBlue.Render(string(p.Stage)),
		p.Message)
}

// ItemLine renders a per-row event: its stage, position and current item.
func ItemLine(i progress.Item) string {
	mark := StyleGreen.Render("✔")
	if !i.Success {
		mark = StyleRed.Render("✖")
	}
	line := fmt.Sprintf("%s %s %s/%s %s", mark, Dim(string(i.Stage)), Count(i.CurrentIndex), Count(i.TotalCount), i.CurrentItem)
	if i.Err != "" {
		line += " " + StyleRed.Render(i.Err)
	}
	return line
}
