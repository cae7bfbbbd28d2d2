package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/adapters/export"
	"github.com/xvierd/focusos/internal/domain"
)

var (
	exportFormat string
	exportPeriod string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions and daily statistics",
	Long:  "Export your session history and daily statistics as JSON, CSV or YAML.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		doc, err := buildExport(context.Background(), exportPeriod, time.Now())
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			return export.Write(cmd.OutOrStdout(), format, doc)
		}
		if err := export.WriteFile(exportOutput, format, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d sessions to %s\n", len(doc.Sessions), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, csv or yaml")
	exportCmd.Flags().StringVar(&exportPeriod, "period", "all", "Time period: week, month, or all")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
}

// buildExport collects the sessions started within period and the daily
// statistics covering them.
func buildExport(ctx context.Context, period string, now time.Time) (export.Document, error) {
	var since time.Time
	switch period {
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	case "all", "":
	default:
		return export.Document{}, fmt.Errorf("unknown period %q (use week, month or all)", period)
	}

	all, err := app.state.ListSessions(ctx, 0)
	if err != nil {
		return export.Document{}, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	var sessions []*domain.FocusSession
	for _, s := range all {
		if !s.StartTime.Before(since) {
			sessions = append(sessions, s)
		}
	}

	from := since
	if from.IsZero() {
		// Newest first: the oldest session bounds the range.
		from = now
		if len(sessions) > 0 {
			from = sessions[len(sessions)-1].StartTime
		}
	}
	days, err := app.stats.Range(ctx, from, now)
	if err != nil {
		return export.Document{}, fmt.Errorf("failed to fetch stats: %w", err)
	}

	userID, _ := app.identity.CurrentUserID()
	return export.NewDocument(userID, sessions, days, now), nil
}
