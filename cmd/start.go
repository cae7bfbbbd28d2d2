package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/adapters/git"
	"github.com/xvierd/focusos/internal/adapters/tui"
	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
)

var (
	startTag     string
	startPlanned time.Duration
	startGitTag  bool
)

// runTimer drives the interactive session view. Tests replace it.
var runTimer = func(ctx context.Context, engine ports.EngineController) (*domain.FocusSession, error) {
	return tui.Run(ctx, engine, tui.DefaultTheme())
}

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a focus session",
	Long: `Start a new focus session and open the timer view. Press "d" to log
a distraction, "p" to pause and "e" to end the session.

Without --planned the configured default goal is used; a zero goal makes
the session open-ended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := setupSignalHandler()
		defer cancel()

		req := domain.StartRequest{}
		if tag := resolveStartTag(ctx); tag != "" {
			req.Tag = &tag
		}

		planned := time.Duration(app.config.Session.DefaultPlanned)
		if cmd.Flags().Changed("planned") {
			planned = startPlanned
		}
		if planned < 0 {
			return fmt.Errorf("planned duration must not be negative")
		}
		if planned > 0 {
			req.PlannedDuration = &planned
		}

		session, err := app.engine.Start(req)
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		app.logger.Debug("session started", "session_id", session.ID, "tag", session.TagLabel())

		ended, err := runTimer(ctx, app.engine)
		if err != nil {
			app.engine.End()
			return fmt.Errorf("timer failed: %w", err)
		}
		if ended == nil {
			if ended, _ = app.engine.End(); ended == nil {
				return nil
			}
		}

		return printSessionSummary(cmd, *ended)
	},
}

func init() {
	startCmd.Flags().StringVarP(&startTag, "tag", "t", "", "Label for this session (e.g. Reading)")
	startCmd.Flags().DurationVarP(&startPlanned, "planned", "p", 0, "Goal duration, e.g. 25m (0 for open-ended)")
	startCmd.Flags().BoolVar(&startGitTag, "git-tag", false, "Tag the session with the current git branch")
}

// resolveStartTag returns --tag, or the git branch when --git-tag is set.
func resolveStartTag(ctx context.Context) string {
	if startTag != "" || !startGitTag {
		return startTag
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	info, err := app.git.Detect(ctx, wd)
	if err != nil {
		app.logger.Debug("git detection failed", "dir", wd, "error", err)
		return ""
	}
	return git.SessionTag(info)
}

func printSessionSummary(cmd *cobra.Command, session domain.FocusSession) error {
	out := cmd.OutOrStdout()
	now := time.Now()
	if jsonOutput {
		return printJSON(out, map[string]interface{}{
			"id":               session.ID,
			"tag":              session.Tag,
			"duration_seconds": session.DurationSeconds(now),
			"focus_score":      session.FocusScore,
			"distractions":     len(session.Distractions),
			"summary":          domain.Summary(session, now),
		})
	}

	fmt.Fprintln(out, domain.Summary(session, now))
	fmt.Fprintf(out, "   Focus score: %.0f\n", session.FocusScore)
	if session.Tag != nil {
		fmt.Fprintf(out, "   Tag: %s\n", *session.Tag)
	}
	return nil
}
