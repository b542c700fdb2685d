package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/reciprocity/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show reciprocity configuration",
		Long: `View the effective configuration settings.

Configuration is read from ~/.reciprocity/config.yaml, then a .env file in
the working directory, then RECIPROCITY_* environment variables.

Examples:
  reciprocity config list                     # Show all settings
  reciprocity config get simulation.clinics   # Get a specific setting
  reciprocity config path                     # Show the config file location`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Redact credentials before printing.
			redacted := *cfg
			redacted.Report.NATSURL = cfg.Report.RedactedNATSURL()

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(redacted)
			}

			data, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				path = filepath.Join(home, config.DirName, "config.yaml")
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// getConfigValue looks up a dotted key. Credentials are redacted.
func getConfigValue(cfg *config.ReciprocityConfig, key string) (interface{}, bool) {
	s := cfg.Simulation
	values := map[string]interface{}{
		"simulation.clinics":                 s.Clinics,
		"simulation.patients":                s.Patients,
		"simulation.rounds":                  s.Rounds,
		"simulation.starter_credits":         s.StarterCredits,
		"simulation.free_rider_fraction":     s.FreeRiderFraction,
		"simulation.low_quality_fraction":    s.LowQualityFraction,
		"simulation.seed":                    s.Seed,
		"simulation.player.enabled":          s.Player.Enabled,
		"simulation.player.share_propensity": s.Player.SharePropensity,
		"simulation.player.quality_bias":     s.Player.QualityBias,
		"economy.read_cost":                  cfg.Economy.ReadCost,
		"economy.publish_reward":             cfg.Economy.PublishReward,
		"economy.publish_stake":              cfg.Economy.PublishStake,
		"economy.decay_per_round":            cfg.Economy.DecayPerRound,
		"economy.slash_amount":               cfg.Economy.SlashAmount,
		"economy.pool_match_rate":            cfg.Economy.PoolMatchRate,
		"economy.dispute_probability":        cfg.Economy.DisputeProbability,
		"logging.level":                      cfg.Logging.Level,
		"logging.event_dir":                  cfg.EventDir(),
		"report.archive":                     cfg.Report.Archive,
		"report.archive_path":                cfg.Report.ArchivePath,
		"report.nats_url":                    cfg.Report.RedactedNATSURL(),
		"report.nats_subject":                cfg.Report.NATSSubject,
		"server.addr":                        cfg.Server.Addr,
		"server.max_sessions":                cfg.Server.MaxSessions,
		"server.session_idle_ttl":            cfg.Server.SessionIdleTTL.String(),
		"server.rate_limit":                  cfg.Server.RateLimit,
		"server.max_clinics":                 cfg.Server.MaxClinics,
		"server.max_patients":                cfg.Server.MaxPatients,
		"server.max_rounds":                  cfg.Server.MaxRounds,
	}
	v, ok := values[key]
	return v, ok
}
