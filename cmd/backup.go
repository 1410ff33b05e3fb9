package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/confirmation"
	"inventory-vault/internal/display"
)

var (
	// Backup listing flags
	listStatus string
	listLimit  int

	// Prune flags
	pruneDryRun     bool
	pruneForce      bool
	pruneWindowDays int
	pruneMinCount   int

	// Delete flags
	deleteForce bool
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage snapshots of the live store",
	Long: `Create, list, verify, prune, and delete snapshots of the live store.

A snapshot is a full dump of the inventory database, compressed and
optionally encrypted, written to the artifact store with its checksum and
row counts recorded in the catalog. Snapshots, restores, and imports share
one maintenance lock, so only one of them runs at a time.

Examples:
  # Take a snapshot now
  inventory-vault backup create

  # List complete snapshots only
  inventory-vault backup list --status complete

  # Re-checksum an artifact without restoring it
  inventory-vault backup verify snap-20260801-020000

  # Preview what a retention pass would delete
  inventory-vault backup prune --dry-run

  # Delete one snapshot without the confirmation prompt
  inventory-vault backup delete snap-20260801-020000 --force`,
}

// backupCreateCmd takes a new snapshot
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a full snapshot of the live store",
	Long: `Take a full snapshot of the live store.

The dump covers every table, is compressed with the configured algorithm,
optionally encrypted, and lands in the artifact store. The catalog records
the snapshot as pending while the dump runs and flips it to complete only
after the artifact is fully written, so a crash mid-run never leaves a
record that claims more than what is on disk.

Examples:
  # Take a snapshot with the configured settings
  inventory-vault backup create

  # Take a snapshot with machine-readable output
  inventory-vault backup create --format json`,
	RunE: runBackupCreate,
}

// backupListCmd lists catalog snapshots
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	Long: `List snapshots recorded in the catalog, newest first.

Results can be filtered by status and limited in count, and render as a
table, JSON, or YAML depending on --format.

Examples:
  # List every snapshot
  inventory-vault backup list

  # List only corrupt snapshots
  inventory-vault backup list --status corrupt

  # List the five newest snapshots as JSON
  inventory-vault backup list --limit 5 --format json`,
	RunE: runBackupList,
}

// backupVerifyCmd re-checks an artifact against its catalog record
var backupVerifyCmd = &cobra.Command{
	Use:   "verify <snapshot-id>",
	Short: "Verify a snapshot artifact against its catalog record",
	Long: `Verify a snapshot artifact against its catalog record.

The artifact is fetched from storage and its checksum and size compared
with what the catalog recorded at creation time. A snapshot that fails
verification is marked corrupt and excluded from restore points.

Examples:
  inventory-vault backup verify snap-20260801-020000`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupVerify,
}

// backupPruneCmd applies the retention policy
var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots that fall outside the retention policy",
	Long: `Delete snapshots that fall outside the retention policy.

Complete snapshots older than the retention window are deleted oldest
first, but never below the configured minimum count. Artifacts are removed
before their records are marked deleted, so a failed delete leaves the
snapshot restorable.

Examples:
  # Show what would be deleted without deleting anything
  inventory-vault backup prune --dry-run

  # Prune with the configured policy, skipping the confirmation prompt
  inventory-vault backup prune --force

  # Prune with a one-off tighter window
  inventory-vault backup prune --window-days 7 --min-count 2`,
	RunE: runBackupPrune,
}

// backupDeleteCmd deletes a single snapshot
var backupDeleteCmd = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete a snapshot and its artifact",
	Long: `Delete a snapshot and its artifact.

The newest complete snapshot is the only guaranteed restore point and is
protected; deleting it requires --force. The artifact is removed from
storage first and the catalog record is marked deleted only once the
artifact is gone.

Examples:
  # Delete with a confirmation prompt
  inventory-vault backup delete snap-20260801-020000

  # Delete without prompting, including the newest complete snapshot
  inventory-vault backup delete snap-20260801-020000 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupDelete,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupVerifyCmd, backupPruneCmd, backupDeleteCmd)

	lf := backupListCmd.Flags()
	lf.StringVar(&listStatus, "status", "", "filter by status (pending, complete, corrupt, deleted)")
	lf.IntVar(&listLimit, "limit", 0, "maximum number of snapshots to list (0 = all)")

	pf := backupPruneCmd.Flags()
	pf.BoolVar(&pruneDryRun, "dry-run", false, "show what would be deleted without deleting")
	pf.BoolVar(&pruneForce, "force", false, "skip the confirmation prompt")
	pf.IntVar(&pruneWindowDays, "window-days", 0, "override the retention window in days")
	pf.IntVar(&pruneMinCount, "min-count", -1, "override the minimum complete snapshots to keep")

	backupDeleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip the confirmation prompt and the newest-snapshot protection")
}

// runBackupCreate takes a snapshot and prints its record
func runBackupCreate(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	record, err := app.Snapshots.CreateSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	displayService.PrintRecord(display.SnapshotFields(record))
	return nil
}

// runBackupList lists snapshots with optional status and limit filters
func runBackupList(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	filter := backup.SnapshotFilter{Limit: listLimit}
	if listStatus != "" {
		status := backup.SnapshotStatus(listStatus)
		switch status {
		case backup.SnapshotStatusPending, backup.SnapshotStatusComplete,
			backup.SnapshotStatusCorrupt, backup.SnapshotStatusDeleted:
		default:
			return fmt.Errorf("unknown status %q, must be one of: pending, complete, corrupt, deleted", listStatus)
		}
		filter.Status = &status
	}

	records, err := app.Snapshots.ListSnapshots(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(records) == 0 {
		displayService.Info("No snapshots found.")
		return nil
	}

	displayService.PrintTable(display.SnapshotTableHeaders(), display.SnapshotTableRows(records))
	return nil
}

// runBackupVerify re-checksums one artifact and reports the result
func runBackupVerify(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Snapshots.VerifySnapshot(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	displayService.PrintRecord(display.VerificationFields(result))

	if !result.Valid {
		return fmt.Errorf("snapshot %s failed verification", args[0])
	}
	return nil
}

// runBackupPrune applies the retention policy, prompting unless forced
// or dry-running
func runBackupPrune(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	policy := app.RetentionPolicy()
	if cmd.Flags().Changed("window-days") {
		policy.WindowDays = pruneWindowDays
	}
	if cmd.Flags().Changed("min-count") {
		policy.MinCount = pruneMinCount
	}

	if !pruneDryRun {
		candidates, err := app.Retention.GetRetentionCandidates(cmd.Context(), policy)
		if err != nil {
			return fmt.Errorf("failed to evaluate retention policy: %w", err)
		}

		confirmService := confirmation.NewConfirmationService(displayService)
		confirmed, err := confirmService.ConfirmPrune(candidates, policy, pruneForce)
		if err != nil {
			return err
		}
		if !confirmed {
			displayService.Warning("Prune cancelled.")
			return nil
		}
		if len(candidates) == 0 {
			return nil
		}
	}

	result, err := app.Retention.Enforce(cmd.Context(), policy, pruneDryRun)
	if err != nil {
		return fmt.Errorf("retention pass failed: %w", err)
	}

	displayService.RenderSections(display.RetentionSections(result))
	return nil
}

// runBackupDelete deletes one snapshot, prompting unless forced
func runBackupDelete(cmd *cobra.Command, args []string) error {
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
	confirmed, err := confirmService.ConfirmDelete(record, deleteForce)
	if err != nil {
		return err
	}
	if !confirmed {
		displayService.Warning("Deletion cancelled.")
		return nil
	}

	if err := app.Snapshots.DeleteSnapshot(cmd.Context(), snapshotID, deleteForce); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", snapshotID, err)
	}
	return nil
}
