package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	glyphRows     = 5
	minClockWidth = 40
)

// clockGlyphs holds the rows of each clock character, top to bottom. Every
// row of a glyph has the same width.
var clockGlyphs = map[rune][glyphRows]string{
	'0': {"███", "█ █", "█ █", "█ █", "███"},
	'1': {" █ ", "██ ", " █ ", " █ ", "███"},
	'2': {"███", "  █", "███", "█  ", "███"},
	'3': {"███", "  █", "███", "  █", "███"},
	'4': {"█ █", "█ █", "███", "  █", "  █"},
	'5': {"███", "█  ", "███", "  █", "███"},
	'6': {"███", "█  ", "███", "█ █", "███"},
	'7': {"███", "  █", "  █", " █ ", " █ "},
	'8': {"███", "█ █", "███", "█ █", "███"},
	'9': {"███", "█ █", "███", "  █", "███"},
	':': {" ", "█", " ", "█", " "},
}

// renderClock draws d as large MM:SS digits. Narrow terminals get a single
// bold line instead.
func renderClock(d time.Duration, color lipgloss.Color, width int) string {
	text := formatDuration(d)
	style := lipgloss.NewStyle().Bold(true).Foreground(color)
	if width < minClockWidth {
		return style.Render(text)
	}

	var rows [glyphRows]strings.Builder
	for i, ch := range text {
		glyph, ok := clockGlyphs[ch]
		if !ok {
			continue
		}
		for r := range rows {
			if i > 0 {
				rows[r].WriteByte(' ')
			}
			rows[r].WriteString(glyph[r])
		}
	}

	lines := make([]string, glyphRows)
	for r := range rows {
		lines[r] = style.Render(rows[r].String())
	}
	return strings.Join(lines, "\n")
}
