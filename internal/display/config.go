package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DisplayConfig holds the rendering options every command shares.
// Writer is injected at runtime and never serialized.
type DisplayConfig struct {
	Writer io.Writer `mapstructure:"-" yaml:"-"`

	// Appearance
	ColorEnabled bool   `mapstructure:"color_enabled" yaml:"color_enabled"`
	Theme        string `mapstructure:"theme" yaml:"theme"`
	UseIcons     bool   `mapstructure:"use_icons" yaml:"use_icons"`
	ShowProgress bool   `mapstructure:"show_progress" yaml:"show_progress"`

	// Layout
	OutputFormat  string `mapstructure:"output_format" yaml:"output_format"`
	TableStyle    string `mapstructure:"table_style" yaml:"table_style"`
	MaxTableWidth int    `mapstructure:"max_table_width" yaml:"max_table_width"`

	// Verbosity
	InteractiveMode bool `mapstructure:"interactive" yaml:"interactive"`
	VerboseMode     bool `mapstructure:"verbose" yaml:"verbose"`
	QuietMode       bool `mapstructure:"quiet" yaml:"quiet"`
}

// ThemeName names a selectable color theme.
type ThemeName string

const (
	ThemeDark         ThemeName = "dark"
	ThemeLight        ThemeName = "light"
	ThemeHighContrast ThemeName = "high-contrast"
	ThemeAuto         ThemeName = "auto"
)

// TableStyleName names a selectable table border style.
type TableStyleName string

const (
	TableStyleDefault TableStyleName = "default"
	TableStyleRounded TableStyleName = "rounded"
	TableStyleGrid    TableStyleName = "grid"
	TableStyleCompact TableStyleName = "compact"
)

// DefaultDisplayConfig is the full-featured interactive configuration.
func DefaultDisplayConfig() *DisplayConfig {
	return &DisplayConfig{
		Writer:          os.Stdout,
		ColorEnabled:    true,
		Theme:           string(ThemeDark),
		UseIcons:        true,
		ShowProgress:    true,
		OutputFormat:    string(FormatTable),
		TableStyle:      string(TableStyleDefault),
		MaxTableWidth:   120,
		InteractiveMode: true,
	}
}

// Validate checks enum fields, the width range, and flag conflicts.
func (dc *DisplayConfig) Validate() error {
	var errs []error

	checkEnum := func(name, value string, allowed ...string) {
		for _, candidate := range allowed {
			if candidate == value {
				return
			}
		}
		errs = append(errs, fmt.Errorf("invalid %s '%s', must be one of: %s", name, value, strings.Join(allowed, ", ")))
	}

	checkEnum("theme", dc.Theme,
		string(ThemeDark), string(ThemeLight), string(ThemeHighContrast), string(ThemeAuto))
	checkEnum("output format", dc.OutputFormat,
		string(FormatTable), string(FormatJSON), string(FormatYAML), string(FormatCompact))
	checkEnum("table style", dc.TableStyle,
		string(TableStyleDefault), string(TableStyleRounded), string(TableStyleGrid), string(TableStyleCompact))

	if dc.MaxTableWidth < 40 || dc.MaxTableWidth > 300 {
		errs = append(errs, fmt.Errorf("max table width must be between 40 and 300, got %d", dc.MaxTableWidth))
	}

	if dc.VerboseMode && dc.QuietMode {
		errs = append(errs, fmt.Errorf("verbose and quiet modes are mutually exclusive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("display configuration validation failed: %v", errs)
	}
	return nil
}

// SetDefaults fills the fields that zero-value structs leave unusable.
func (dc *DisplayConfig) SetDefaults() {
	if dc.Writer == nil {
		dc.Writer = os.Stdout
	}
	if dc.Theme == "" {
		dc.Theme = string(ThemeDark)
	}
	if dc.OutputFormat == "" {
		dc.OutputFormat = string(FormatTable)
	}
	if dc.TableStyle == "" {
		dc.TableStyle = string(TableStyleDefault)
	}
	if dc.MaxTableWidth == 0 {
		dc.MaxTableWidth = 120
	}
}

// GetColorTheme resolves the configured theme name.
func (dc *DisplayConfig) GetColorTheme() ColorTheme {
	return GetThemeByName(dc.Theme)
}

// GetTableStyle resolves the configured table style name.
func (dc *DisplayConfig) GetTableStyle() TableStyle {
	return GetTableStyleByName(dc.TableStyle)
}

// unlessQuiet gates a feature flag behind quiet mode.
func (dc *DisplayConfig) unlessQuiet(enabled bool) bool {
	return enabled && !dc.QuietMode
}

// IsColorEnabled reports whether output should be colorized.
func (dc *DisplayConfig) IsColorEnabled() bool {
	return dc.unlessQuiet(dc.ColorEnabled)
}

// IsProgressEnabled reports whether spinners and bars should render.
func (dc *DisplayConfig) IsProgressEnabled() bool {
	return dc.unlessQuiet(dc.ShowProgress)
}

// IsIconsEnabled reports whether icons should render.
func (dc *DisplayConfig) IsIconsEnabled() bool {
	return dc.unlessQuiet(dc.UseIcons)
}

// IsInteractiveEnabled reports whether prompts may be shown.
func (dc *DisplayConfig) IsInteractiveEnabled() bool {
	return dc.unlessQuiet(dc.InteractiveMode)
}
