package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xvierd/focusos/internal/domain"
)

// heatmapColors maps an intensity level to a cell color.
var heatmapColors = [5]string{"#2D333B", "#0E4429", "#006D32", "#26A641", "#39D353"}

const heatmapCell = "■"

// RenderHeatmap renders one colored cell per day, oldest first, followed by a
// legend line.
func RenderHeatmap(days []domain.DailyStatistic) string {
	if len(days) == 0 {
		return ""
	}

	cells := make([]string, 0, len(days))
	for _, day := range days {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(heatmapColors[day.Intensity()]))
		cells = append(cells, style.Render(heatmapCell))
	}

	legend := lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("%s → %s", days[0].Date, days[len(days)-1].Date),
	)
	return strings.Join(cells, " ") + "\n" + legend
}
