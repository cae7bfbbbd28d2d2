package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/adapters/tui"
	"github.com/xvierd/focusos/internal/domain"
)

var (
	statsDate string
	statsDays int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily focus statistics",
	Long: `Display the statistics of one day (today by default) followed by a
heatmap of the preceding days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if statsDays < 1 {
			return fmt.Errorf("--days must be at least 1")
		}

		day, err := app.stats.Day(ctx, statsDate)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		anchor, err := domain.ParseDateKey(day.Date)
		if err != nil {
			return err
		}
		days, err := app.stats.Range(ctx, anchor.AddDate(0, 0, -(statsDays-1)), anchor)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]interface{}{
				"day":  day,
				"days": days,
			})
		}

		renderDay(out, *day)
		fmt.Fprintln(out)
		fmt.Fprintln(out, tui.RenderHeatmap(days))
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsDate, "date", "", "Day to show as YYYY-MM-DD (default: today)")
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Number of days in the heatmap")
}

func renderDay(w io.Writer, day domain.DailyStatistic) {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C6FE0"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))

	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(fmt.Sprintf("%-14s", label)), valueStyle.Render(value))
	}

	fmt.Fprintln(w, titleStyle.Render("  Focus stats for "+day.Date))
	row("Focus time", formatMinutes(day.TotalFocusDuration()))
	row("Sessions", fmt.Sprintf("%d", day.SessionCount))
	row("Avg score", fmt.Sprintf("%.1f", day.AvgProductivityScore))
	row("Distractions", fmt.Sprintf("%d", day.DistractionCount))
	if day.UpdatedAt != nil {
		row("Updated", day.UpdatedAt.Local().Format(time.Kitchen))
	}
}
