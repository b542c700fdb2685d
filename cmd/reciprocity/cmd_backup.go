package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/reciprocity/internal/backup"
	"github.com/nvandessel/reciprocity/internal/pathutil"
	"github.com/nvandessel/reciprocity/internal/store"
)

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write the archive to a checksummed backup file",
		Long: `Export every archived run and its rounds to a compressed backup file.

Backups go to ~/.reciprocity/backups/ unless --output names a path inside that
directory or the current working directory. Use --keep or --max-age to prune
older backups in the same directory afterwards.

Examples:
  reciprocity runs backup
  reciprocity runs backup --keep 5
  reciprocity runs backup --output ./archive.bak`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			dir, err := backup.DefaultBackupDir()
			if err != nil {
				return err
			}
			if output == "" {
				output = backup.GenerateBackupPath(dir)
			} else {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
				if err := pathutil.ValidatePath(output, []string{dir, cwd}); err != nil {
					return err
				}
			}

			var policy backup.AnyPolicy
			if keep > 0 {
				policy = append(policy, backup.CountPolicy{MaxCount: keep})
			}
			if maxAge != "" {
				d, err := backup.ParseDuration(maxAge)
				if err != nil {
					return err
				}
				policy = append(policy, backup.AgePolicy{MaxAge: d})
			}

			return withArchive(cmd, func(archive store.ReportStore) error {
				snap, err := backup.Backup(cmd.Context(), archive, output)
				if err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}

				var pruned []string
				if len(policy) > 0 {
					if pruned, err = backup.ApplyRetention(dir, policy); err != nil {
						return fmt.Errorf("retention failed: %w", err)
					}
				}

				if jsonOut {
					if pruned == nil {
						pruned = []string{}
					}
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
						"path":   output,
						"runs":   len(snap.Runs),
						"rounds": snap.RoundCount(),
						"pruned": pruned,
					})
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Backed up %d runs (%d rounds) to %s\n", len(snap.Runs), snap.RoundCount(), output)
				if len(pruned) > 0 {
					fmt.Fprintf(w, "Removed %d old backups\n", len(pruned))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringP("output", "o", "", "Backup file path (default: timestamped file in ~/.reciprocity/backups)")
	cmd.Flags().Int("keep", 0, "Keep only the N newest backups in the backup directory")
	cmd.Flags().String("max-age", "", "Remove backups older than this (e.g. 30d, 2w, 720h)")
	return cmd
}

func newRunsRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore archived runs from a backup file",
		Long: `Import the runs in a backup file into the archive. Runs whose id is
already archived are skipped unless --replace is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			replace, _ := cmd.Flags().GetBool("replace")

			mode := backup.RestoreMerge
			if replace {
				mode = backup.RestoreReplace
			}

			return withArchive(cmd, func(archive store.ReportStore) error {
				res, err := backup.Restore(cmd.Context(), archive, args[0], mode)
				if err != nil {
					return fmt.Errorf("restore failed: %w", err)
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d rounds), skipped %d\n",
					res.RunsRestored, res.RoundsRestored, res.RunsSkipped)
				return nil
			})
		},
	}

	cmd.Flags().Bool("replace", false, "Overwrite archived runs that share an id with the backup")
	return cmd
}
