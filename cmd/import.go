package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"inventory-vault/internal/application"
	"inventory-vault/internal/display"
	"inventory-vault/internal/migration"
)

var (
	// Import flags
	importFormat  string
	importMapping string

	// Import run listing flags
	runsLimit int
)

// importCmd runs a legacy import
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a legacy inventory export into the live store",
	Long: `Import a legacy JSON or HTML inventory export into the live store.

The export is parsed into canonical records, validated, and reconciled
against the live store: new records are inserted, existing ones updated
in place, exact duplicates skipped, and invalid records rejected with a
reason. The whole run is recorded in the catalog with per-entity counts
and the full reject list, so a partial import is always auditable.

The file format is inferred from the extension (.json or .html) unless
--format says otherwise.

Examples:
  # Import a JSON export
  inventory-vault import legacy-export.json

  # Import an HTML report, forcing the format
  inventory-vault import report.txt --source-format html

  # Import with a custom key mapping
  inventory-vault import legacy-export.json --mapping mapping.yaml

  # Inspect past runs
  inventory-vault import runs`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// importRunsCmd inspects import runs
var importRunsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List import runs or show one in detail",
	Long: `List import runs recorded in the catalog, or show a single run.

Every import leaves a run record with its counts: parsed, inserted,
updated, skipped duplicates, and rejected records. With a run ID the full
record is shown including the per-entity breakdown and every reject with
its reason.

Examples:
  # List recent import runs
  inventory-vault import runs

  # Show one run with its rejects
  inventory-vault import runs run-3d8b2e`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImportRuns,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importRunsCmd)

	importCmd.Flags().StringVar(&importFormat, "source-format", "", "source format (json, html), overrides extension inference")
	importCmd.Flags().StringVar(&importMapping, "mapping", "", "YAML mapping file overriding the built-in key mapping")
	importRunsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")
}

// runImport parses and applies one legacy export
func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cmd.Flags().Changed("mapping") {
		cfg.Import.MappingFile = importMapping
	}

	displayService := display.NewDisplayService(&cfg.Display)

	app, err := application.NewApplication(cfg, displayService)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	app.StartupSweep(cmd.Context())

	path := args[0]
	displayService.Info(fmt.Sprintf("Importing %s...", filepath.Base(path)))

	var run *migration.ImportRun
	if importFormat != "" {
		format, err := migration.ParseFormat(importFormat)
		if err != nil {
			return err
		}
		payload, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("cannot read %s: %w", path, readErr)
		}
		run, err = app.Imports.Import(cmd.Context(), payload, format, filepath.Base(path))
		if err != nil {
			return reportImportFailure(displayService, run, err)
		}
	} else {
		run, err = app.Imports.ImportFile(cmd.Context(), path)
		if err != nil {
			return reportImportFailure(displayService, run, err)
		}
	}

	displayService.RenderSections(display.ImportRunSections(run))
	if run.Degraded {
		displayService.Warning(fmt.Sprintf("Import finished with %d rejected record(s), see the run record for details.", run.Counts.RejectedInvalid))
	} else {
		displayService.Success(fmt.Sprintf("Import complete: %d inserted, %d updated, %d skipped.",
			run.Counts.Inserted, run.Counts.Updated, run.Counts.SkippedDuplicate))
	}
	return nil
}

// reportImportFailure shows whatever run record a failed import left
// behind before surfacing the error
func reportImportFailure(displayService display.DisplayService, run *migration.ImportRun, err error) error {
	if run != nil {
		displayService.RenderSections(display.ImportRunSections(run))
	}
	return fmt.Errorf("import failed: %w", err)
}

// runImportRuns lists import runs, or shows one when an ID is given
func runImportRuns(cmd *cobra.Command, args []string) error {
	app, displayService, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) == 1 {
		run, err := app.Imports.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load import run %s: %w", args[0], err)
		}
		displayService.RenderSections(display.ImportRunSections(run))
		if len(run.Rejects) > 0 {
			displayService.PrintTable(display.RejectTableHeaders(), display.RejectTableRows(run.Rejects))
		}
		return nil
	}

	runs, err := app.Imports.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list import runs: %w", err)
	}

	if len(runs) == 0 {
		displayService.Info("No import runs found.")
		return nil
	}

	displayService.PrintTable(display.ImportRunTableHeaders(), display.ImportRunTableRows(runs))
	return nil
}
