package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"inventory-vault/internal/confirmation"
	"inventory-vault/internal/display"
)

var (
	// Restore flags
	restoreForce bool

	// Restore job listing flags
	jobsLimit int
)

// restoreCmd restores the live store from a snapshot
var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Restore the live store from a snapshot",
	Long: `Restore the live store from a complete snapshot.

The artifact is fetched, its checksum verified, and the dump applied to
the live store inside a single transaction: either the store ends up
exactly as the snapshot describes or it is left untouched. Every attempt
is recorded as a restore job in the catalog, including failed and
cancelled ones.

Restoring overwrites current data, so the command prompts for
confirmation unless --force is given.

Examples:
  # Restore with a confirmation prompt
  inventory-vault restore snap-20260801-020000

  # Restore without prompting
  inventory-vault restore snap-20260801-020000 --force

  # See which snapshots can be restored
  inventory-vault restore points

  # Inspect past restore attempts
  inventory-vault restore jobs`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

// restorePointsCmd lists restorable snapshots
var restorePointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List snapshots the live store can be restored from",
	Long: `List the snapshots a restore can target, newest first.

Only complete snapshots qualify; pending, corrupt, and deleted ones are
excluded.

Examples:
  inventory-vault restore points`,
	RunE: runRestorePoints,
}

// restoreJobsCmd inspects restore attempts
var restoreJobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List restore jobs or show one in detail",
	Long: `List restore jobs recorded in the catalog, or show a single job.

Every restore attempt leaves a job record with its outcome: success,
failed, or aborted. Without an argument the newest jobs are listed; with
a job ID the full record is shown.

Examples:
  # List recent restore jobs
  inventory-vault restore jobs

  # Show one job in detail
  inventory-vault restore jobs restore-9f2c1a

  # List more history
  inventory-vault restore jobs --limit 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreJobs,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.AddCommand(restorePointsCmd, restoreJobsCmd)

	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "skip the confirmation prompt")
	restoreJobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum number of jobs to list")
}

// runRestore overwrites the live store from the named snapshot,
// prompting unless forced
func runRestore(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	snapshotID := args[0]

	record, err := app.Snapshots.GetSnapshot(cmd.Context(), snapshotID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", snapshotID, err)
	}

	confirmService := confirmation.NewConfirmationService(displayService)
	confirmed, err := confirmService.ConfirmRestore(record, restoreForce)
	if err != nil {
		return err
	}
	if !confirmed {
		displayService.Warning("Restore cancelled.")
		return nil
	}

	job, err := app.Restores.Restore(cmd.Context(), snapshotID)
	if job != nil {
		displayService.PrintRecord(display.RestoreJobFields(job))
	}
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return nil
}

// runRestorePoints lists the restorable snapshots
func runRestorePoints(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	points, err := app.Restores.ListRestorePoints(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list restore points: %w", err)
	}

	if len(points) == 0 {
		displayService.Info("No restorable snapshots found.")
		return nil
	}

	displayService.PrintTable(display.SnapshotTableHeaders(), display.SnapshotTableRows(points))
	return nil
}

// runRestoreJobs lists restore jobs, or shows one when an ID is given
func runRestoreJobs(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) == 1 {
		job, err := app.Restores.GetRestoreJob(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load restore job %s: %w", args[0], err)
		}
		displayService.PrintRecord(display.RestoreJobFields(job))
		return nil
	}

	jobs, err := app.Restores.ListRestoreJobs(cmd.Context(), jobsLimit)
	if err != nil {
		return fmt.Errorf("failed to list restore jobs: %w", err)
	}

	if len(jobs) == 0 {
		displayService.Info("No restore jobs found.")
		return nil
	}

	displayService.PrintTable(display.RestoreJobTableHeaders(), display.RestoreJobTableRows(jobs))
	return nil
}
