package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inventory-vault/internal/application"
	"inventory-vault/internal/config"
	"inventory-vault/internal/display"
	"inventory-vault/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	// Output control flags
	verbose  bool
	quiet    bool
	logLevel string
	logFile  string

	// Terminal output flags
	noColor       bool
	theme         string
	outputFormat  string
	noIcons       bool
	noProgress    bool
	noInteractive bool
	tableStyle    string
	maxTableWidth int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inventory-vault",
	Short: "Backup, restore, and legacy-data import for the inventory store",
	Long: `Inventory Vault manages the maintenance surface of an inventory
database: full snapshots with compression and optional encryption, restores
from any complete snapshot, retention pruning, and a one-shot importer for
legacy JSON/HTML exports. A catalog database records every snapshot, restore
job, and import run so the audit trail survives crashes.

Examples:
  # Take a snapshot of the live store
  inventory-vault backup create

  # List snapshots as a table, or as JSON for scripting
  inventory-vault backup list
  inventory-vault backup list --format=json

  # Restore the live store from a snapshot
  inventory-vault restore snap-20260801-020000

  # Import a legacy export and inspect the run afterwards
  inventory-vault import legacy-export.json
  inventory-vault import runs

  # Run the admin API and the daily backup scheduler
  inventory-vault serve

  # Generate a starter configuration file
  inventory-vault config init`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.inventory-vault.yaml)")

	// Output control
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	pf.StringVar(&logLevel, "log-level", "", "log level (quiet, normal, verbose, debug)")
	pf.StringVar(&logFile, "log-file", "", "write logs to file instead of stderr")

	// Display
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.StringVar(&theme, "theme", "dark", "color theme (dark, light, high-contrast, auto)")
	pf.StringVar(&outputFormat, "format", "table", "output format (table, json, yaml, compact)")
	pf.BoolVar(&noIcons, "no-icons", false, "disable Unicode icons")
	pf.BoolVar(&noProgress, "no-progress", false, "disable progress indicators")
	pf.BoolVar(&noInteractive, "no-interactive", false, "disable interactive prompts")
	pf.StringVar(&tableStyle, "table-style", "default", "table style (default, rounded, grid, compact)")
	pf.IntVar(&maxTableWidth, "max-table-width", 120, "maximum table width (40-300)")

	rootCmd.SetUsageTemplate(usageTemplate)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig builds the effective configuration from the config file,
// environment variables, and CLI flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := validateGlobalFlags(); err != nil {
		return nil, err
	}

	loader := config.NewLoader()

	// Bind the non-inverted display flags so a changed flag wins over the
	// config file
	v := loader.Viper()
	persistent := rootCmd.PersistentFlags()
	v.BindPFlag("display.theme", persistent.Lookup("theme"))
	v.BindPFlag("display.output_format", persistent.Lookup("format"))
	v.BindPFlag("display.table_style", persistent.Lookup("table-style"))
	v.BindPFlag("display.max_table_width", persistent.Lookup("max-table-width"))

	cfg, err := loader.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	applyGlobalFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyGlobalFlags overrides configuration values with explicitly set
// CLI flags, handling the inverted boolean flags viper cannot bind
func applyGlobalFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("quiet") {
		cfg.Display.QuietMode = quiet
		if quiet {
			cfg.Logging.Level = string(logging.LogLevelQuiet)
		}
	}
	if flags.Changed("verbose") {
		cfg.Display.VerboseMode = verbose
		if verbose {
			cfg.Logging.Level = string(logging.LogLevelVerbose)
		}
	}
	if flags.Changed("no-color") {
		cfg.Display.ColorEnabled = !noColor
	}
	if flags.Changed("no-icons") {
		cfg.Display.UseIcons = !noIcons
	}
	if flags.Changed("no-progress") {
		cfg.Display.ShowProgress = !noProgress
	}
	if flags.Changed("no-interactive") {
		cfg.Display.InteractiveMode = !noInteractive
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = logFile
	}
}

// validateGlobalFlags validates CLI flags and their combinations
func validateGlobalFlags() error {
	if verbose && quiet {
		return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}
	return nil
}

// newApplication loads the configuration and wires the full application.
// The startup sweep runs before the command body so stale pending
// snapshots are already reclassified when the catalog is read.
func newApplication(cmd *cobra.Command) (*application.Application, display.DisplayService, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	displayService := display.NewDisplayService(&cfg.Display)

	app, err := application.NewApplication(cfg, displayService)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	app.StartupSweep(cmd.Context())

	return app, displayService, nil
}

// usageTemplate extends the stock cobra usage text with configuration and
// output-format help
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}

Configuration File:
  Generate a starter configuration with: inventory-vault config init

  Search order when --config is not given:
    $HOME/.inventory-vault.yaml
    ./.inventory-vault.yaml

Environment Variables:
  Every configuration option can be set with the prefix INVENTORY_VAULT_
  Examples:
    INVENTORY_VAULT_SERVER_ADDR=:9090
    INVENTORY_VAULT_STORE_ENGINE=mysql
    INVENTORY_VAULT_LOGGING_LEVEL=debug
    INVENTORY_VAULT_ENCRYPTION_KEY=<backup encryption passphrase>

Output Formats:
  table          - Formatted tables with colors and styling (default)
  json           - Machine-readable JSON output
  yaml           - Human-readable YAML output
  compact        - Minimal output for scripting and automation
`

// build holds version information stamped by the main package at link time
var build = struct {
	version   string
	buildTime string
	gitCommit string
	goVersion string
}{"dev", "unknown", "unknown", "unknown"}

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	build.version = v
	build.buildTime = bt
	build.gitCommit = gc
	build.goVersion = gv
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  "Print the version information for inventory-vault",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inventory-vault version %s\n", build.version)
		fmt.Printf("Built: %s\n", build.buildTime)
		fmt.Printf("Commit: %s\n", build.gitCommit)
		fmt.Printf("Go version: %s\n", build.goVersion)
	},
}
