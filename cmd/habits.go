package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/domain"
)

var habitIcon string

var habitsCmd = &cobra.Command{
	Use:   "habits",
	Short: "Manage habits you want to break",
}

var habitsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		habit, err := app.habits.Add(context.Background(), args[0], habitIcon)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, habitRecord(habit))
		}
		fmt.Fprintf(out, "Added habit %q (%s)\n", habit.Name, shortID(habit.ID))
		return nil
	},
}

var habitsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		habits, err := app.habits.List(context.Background())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			records := make([]map[string]interface{}, 0, len(habits))
			for _, h := range habits {
				records = append(records, habitRecord(h))
			}
			return printJSON(out, records)
		}
		if len(habits) == 0 {
			fmt.Fprintln(out, "No habits yet. Add one with: focusos habits add <name>")
			return nil
		}
		for _, h := range habits {
			fmt.Fprintf(out, "%s  %-10s  %s\n", h.ID, h.Icon, h.Name)
		}
		return nil
	},
}

var habitsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a habit",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := app.habits.Delete(context.Background(), args[0])
		if errors.Is(err, domain.ErrHabitNotFound) {
			return fmt.Errorf("habit %s not found", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Habit deleted.")
		return nil
	},
}

func init() {
	habitsAddCmd.Flags().StringVar(&habitIcon, "icon", "", "Icon name for the habit")
	habitsCmd.AddCommand(habitsAddCmd, habitsListCmd, habitsDeleteCmd)
}

func habitRecord(h *domain.Habit) map[string]interface{} {
	return map[string]interface{}{
		"id":         h.ID,
		"name":       h.Name,
		"icon":       h.Icon,
		"created_at": h.CreatedAt,
	}
}
