package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the report archive",
		Long: `List, show, verify, delete, reset, back up and restore archived runs.

Runs are archived when report.archive is enabled or run is given --archive.
The archive is ~/.reciprocity/runs.db unless report.archive_path is set.

Examples:
  reciprocity runs list --limit 10
  reciprocity runs show <run-id> --rounds
  reciprocity runs verify
  reciprocity runs backup --keep 5
  reciprocity runs reset --force`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsVerifyCmd(),
		newRunsDeleteCmd(),
		newRunsResetCmd(),
		newRunsBackupCmd(),
		newRunsRestoreCmd(),
	)

	return cmd
}

// withArchive opens the configured archive for the duration of fn.
func withArchive(cmd *cobra.Command, fn func(store.ReportStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer archive.Close()
	return fn(archive)
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			return withArchive(cmd, func(archive store.ReportStore) error {
				runs, err := archive.ListRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}

				if jsonOut {
					if runs == nil {
						runs = []store.RunRecord{}
					}
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"runs":        runs,
						"total_count": len(runs),
					})
				}

				w := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(w, "No archived runs")
					return nil
				}
				for _, r := range runs {
					status := "incomplete"
					switch {
					case r.Closed():
						status = fmt.Sprintf("closed after round %d, %d/%d clinics remaining",
							r.Stats.Round, r.Stats.RemainingClinics, r.Config.Clinics)
					case r.Finished():
						status = fmt.Sprintf("%d/%d clinics remaining", r.Stats.RemainingClinics, r.Config.Clinics)
					}
					fmt.Fprintf(w, "  %s  %s  seed %-10d  %d rounds  %s\n",
						r.CreatedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Seed, r.Config.Rounds, status)
				}
				fmt.Fprintf(w, "Total: %d runs\n", len(runs))
				return nil
			})
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			showRounds, _ := cmd.Flags().GetBool("rounds")

			return withArchive(cmd, func(archive store.ReportStore) error {
				ctx := cmd.Context()
				run, err := archive.GetRun(ctx, args[0])
				if err != nil {
					return err
				}

				var rounds []store.RoundRecord
				if showRounds {
					if rounds, err = archive.GetRounds(ctx, run.ID); err != nil {
						return fmt.Errorf("failed to load rounds: %w", err)
					}
				}

				if jsonOut {
					out := map[string]interface{}{"run": run}
					if showRounds {
						out["rounds"] = rounds
					}
					return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
				}

				w := cmd.OutOrStdout()
				cfg := run.Config
				fmt.Fprintf(w, "Run %s\n", run.ID)
				fmt.Fprintf(w, "  created %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(w, "  %d clinics, %d patients, %d rounds, seed %d\n", cfg.Clinics, cfg.Patients, cfg.Rounds, cfg.Seed)
				fmt.Fprintln(w)
				if run.Closed() {
					fmt.Fprintf(w, "  closed after round %d\n", run.Stats.Round)
				}
				if run.Finished() {
					printStats(w, *run.Stats)
				} else {
					fmt.Fprintln(w, "  run did not finish")
				}

				if showRounds {
					fmt.Fprintln(w)
					fmt.Fprintf(w, "  %5s  %9s  %11s  %5s  %9s  %8s  %8s\n",
						"ROUND", "POOL IN", "POOL OUT", "READS", "PUBLISHES", "DISPUTES", "OPT-OUTS")
					for _, r := range rounds {
						s := r.Summary
						fmt.Fprintf(w, "  %5d  %9d  %11d  %5d  %9d  %8d  %8d\n",
							s.Round, s.PoolCollected, s.PoolDistributed, s.Reads, s.Publishes, s.Disputes, s.OptOuts)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().Bool("rounds", false, "Include every round's summary")
	return cmd
}

func newRunsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [run-id]",
		Short: "Check archived runs for consistency",
		Long: `Check that archived rounds are contiguous, that pool payouts never exceed
collections, that totals never decrease and that final statistics match
the last round. Verifies every run when no id is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withArchive(cmd, func(archive store.ReportStore) error {
				var (
					issues []store.ValidationError
					err    error
				)
				if len(args) == 1 {
					issues, err = store.ValidateRun(cmd.Context(), archive, args[0])
				} else {
					issues, err = store.ValidateArchive(cmd.Context(), archive)
				}
				if err != nil {
					return err
				}

				if jsonOut {
					if issues == nil {
						issues = []store.ValidationError{}
					}
					if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"valid":  len(issues) == 0,
						"issues": issues,
					}); err != nil {
						return err
					}
				} else {
					w := cmd.OutOrStdout()
					if len(issues) == 0 {
						fmt.Fprintln(w, "OK: archive is consistent")
						return nil
					}
					for _, issue := range issues {
						fmt.Fprintf(w, "  %s\n", issue)
					}
				}
				if len(issues) > 0 {
					return errors.New("archive verification failed")
				}
				return nil
			})
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			return withArchive(cmd, func(archive store.ReportStore) error {
				if err := archive.DeleteRun(cmd.Context(), args[0]); err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"deleted": args[0],
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}

func newRunsResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every archived run",
		Long: `Drop the archive tables and recreate an empty schema. Take a backup first
with "runs backup" if the runs may be needed again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if !force {
				return errors.New("refusing to reset the archive without --force")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			archive, err := openArchive(cfg)
			if err != nil {
				return err
			}
			defer archive.Close()

			ctx := cmd.Context()
			runs, err := archive.ListRuns(ctx, 0)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if err := archive.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset archive: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"path":    archive.Path(),
					"removed": len(runs),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs from %s\n", len(runs), archive.Path())
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Confirm deletion of every archived run")
	return cmd
}
