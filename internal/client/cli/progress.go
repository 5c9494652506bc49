package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/client/services"
)

const defaultWidth = 80

// progress returns a ProgressFunc drawing a bar on errOut, or nil when
// errOut is not a terminal.
func (a *App) progress(label string) services.ProgressFunc {
	if !a.interactive {
		return nil
	}
	return func(done, total int) {
		fmt.Fprint(a.errOut, "\r"+renderBar(label, done, total, a.width()))
	}
}

// endProgress moves past the bar line.
func (a *App) endProgress() {
	if a.interactive {
		fmt.Fprintln(a.errOut)
	}
}

// renderBar formats "label [####....] done/total pct%" to fit width columns.
func renderBar(label string, done, total, width int) string {
	pct := 100.0
	if total > 0 {
		pct = float64(done) * 100 / float64(total)
	}
	suffix := fmt.Sprintf(" %d/%d %5.1f%%", done, total, pct)

	barWidth := width - len(label) - len(suffix) - 4
	if barWidth < 10 {
		return strings.TrimSpace(label) + suffix
	}

	filled := 0
	if total > 0 {
		filled = barWidth * done / total
	}
	return label + " [" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]" + suffix
}
