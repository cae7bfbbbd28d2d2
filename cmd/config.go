package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xvierd/focusos/internal/config"
	"github.com/xvierd/focusos/internal/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View the effective configuration",
	Long: `Print the configuration file location and the values in effect after
environment overrides (FOCUSOS_*) have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, map[string]interface{}{
				"path":   path,
				"config": app.config,
			})
		}
		printConfig(out, path, app.config)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting and save it",
	Long: `Change one setting in the configuration file. Supported keys:
session.default_planned, session.tick_interval, notifications.enabled,
stats.attribution, log.level, storage.driver, storage.postgres_url.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setConfigValue(app.config, args[0], args[1]); err != nil {
			return err
		}
		if err := app.config.Validate(); err != nil {
			return err
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if err := config.Save(path, app.config); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

func printConfig(w io.Writer, path string, cfg *config.Config) {
	planned := "open-ended"
	if cfg.Session.DefaultPlanned > 0 {
		planned = formatMinutes(time.Duration(cfg.Session.DefaultPlanned))
	}
	notifications := "off"
	if cfg.Notifications.Enabled {
		notifications = "on"
	}

	fmt.Fprintf(w, "  Config file:      %s\n", path)
	fmt.Fprintf(w, "  User:             %s\n", cfg.User.ID)
	fmt.Fprintf(w, "  Log level:        %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "  Default goal:     %s\n", planned)
	fmt.Fprintf(w, "  Tick interval:    %s\n", cfg.Session.TickInterval)
	fmt.Fprintf(w, "  Notifications:    %s\n", notifications)
	fmt.Fprintf(w, "  Storage:          %s\n", cfg.Storage.Driver)
	if cfg.Storage.Driver == config.DriverSQLite {
		fmt.Fprintf(w, "  Database:         %s\n", config.GetDBPath(cfg))
	}
	fmt.Fprintf(w, "  Stats attributed: session %s day\n", cfg.Stats.Attribution)
	fmt.Fprintf(w, "  Sync retries:     %d (backoff %s..%s)\n", cfg.Sync.MaxAttempts, cfg.Sync.BackoffBase, cfg.Sync.BackoffMax)
}

// setConfigValue applies one key=value change to cfg.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "session.default_planned", "session.tick_interval":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid duration %q", value)
		}
		if key == "session.tick_interval" {
			cfg.Session.TickInterval = config.Duration(d)
		} else {
			cfg.Session.DefaultPlanned = config.Duration(d)
		}
	case "notifications.enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		cfg.Notifications.Enabled = enabled
	case "stats.attribution":
		if _, err := services.ParseAttribution(value); err != nil {
			return err
		}
		cfg.Stats.Attribution = value
	case "log.level":
		cfg.Log.Level = value
	case "storage.driver":
		cfg.Storage.Driver = value
	case "storage.postgres_url":
		cfg.Storage.PostgresURL = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
