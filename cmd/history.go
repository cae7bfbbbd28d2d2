package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/domain"
)

var (
	historyLimit int
	historyTag   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent focus sessions",
	Long:  `List completed focus sessions, newest first. --tag fuzzy-matches session tags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		sessions, err := app.state.ListSessions(ctx, 0)
		if err != nil {
			return err
		}
		if historyTag != "" {
			sessions = filterByTag(sessions, historyTag)
		}
		if historyLimit > 0 && len(sessions) > historyLimit {
			sessions = sessions[:historyLimit]
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			records := make([]map[string]interface{}, 0, len(sessions))
			for _, s := range sessions {
				records = append(records, sessionRecord(s))
			}
			return printJSON(out, records)
		}

		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		printSessions(out, sessions)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of sessions to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyTag, "tag", "t", "", "Fuzzy filter on session tags")
}

// sessionSource adapts sessions to fuzzy.Source over their tags.
type sessionSource []*domain.FocusSession

func (s sessionSource) String(i int) string { return s[i].TagLabel() }
func (s sessionSource) Len() int            { return len(s) }

// filterByTag keeps the sessions whose tag fuzzy-matches query, preserving order.
func filterByTag(sessions []*domain.FocusSession, query string) []*domain.FocusSession {
	matches := fuzzy.FindFrom(query, sessionSource(sessions))
	indexes := make([]int, 0, len(matches))
	for _, match := range matches {
		indexes = append(indexes, match.Index)
	}
	sort.Ints(indexes)

	result := make([]*domain.FocusSession, 0, len(indexes))
	for _, i := range indexes {
		result = append(result, sessions[i])
	}
	return result
}

func sessionRecord(s *domain.FocusSession) map[string]interface{} {
	return map[string]interface{}{
		"id":               s.ID,
		"start_time":       s.StartTime,
		"end_time":         s.EndTime,
		"duration_seconds": s.DurationSeconds(time.Now()),
		"focus_score":      s.FocusScore,
		"distractions":     len(s.Distractions),
		"tag":              s.Tag,
	}
}

func printSessions(w io.Writer, sessions []*domain.FocusSession) {
	fmt.Fprintf(w, "%-8s  %-16s  %-8s  %-5s  %-3s  %s\n", "ID", "STARTED", "LENGTH", "SCORE", "DST", "TAG")
	for _, s := range sessions {
		tag := s.TagLabel()
		if tag == "" {
			tag = "-"
		}
		fmt.Fprintf(w, "%-8s  %-16s  %-8s  %5.0f  %3d  %s\n",
			shortID(s.ID),
			s.StartTime.Local().Format("2006-01-02 15:04"),
			formatMinutes(s.Duration(time.Now())),
			s.FocusScore,
			len(s.Distractions),
			tag,
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
