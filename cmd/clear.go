package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions, statistics and habits",
	Long:  `Permanently delete every session, daily statistic and habit of the current user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if !clearYes {
			fmt.Fprint(out, "This deletes all of your focus data. Continue? [y/N] ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.TrimSpace(strings.ToLower(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(out, "Nothing deleted.")
				return nil
			}
		}

		// Let in-flight persistence land first so nothing reappears afterwards.
		ctx := context.Background()
		if err := app.queue.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush pending sessions: %w", err)
		}
		if err := app.habits.ClearAllUserData(ctx); err != nil {
			return err
		}
		app.engine.ClearHistory()
		fmt.Fprintln(out, "All focus data deleted.")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
}
