package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// displayService implements the DisplayService interface
type displayService struct {
	config            *DisplayConfig
	writer            io.Writer
	colorSystem       ColorSystem
	iconSystem        IconSystem
	spinnerManager    *spinnerManager
	formatterRegistry *FormatterRegistry
}

// NewDisplayService builds a service over the given configuration. A nil
// config gets the defaults; a nil writer goes to stdout.
func NewDisplayService(config *DisplayConfig) DisplayService {
	if config == nil {
		config = DefaultDisplayConfig()
	}
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	return &displayService{
		config:            config,
		writer:            config.Writer,
		colorSystem:       NewColorSystem(config.GetColorTheme()),
		iconSystem:        NewIconSystem(),
		spinnerManager:    newSpinnerManager(),
		formatterRegistry: NewFormatterRegistry(),
	}
}

// theme resolves the configured color theme.
func (ds *displayService) theme() ColorTheme {
	return ds.config.GetColorTheme()
}

// structuredFormat reports whether output goes through the formatter
// registry instead of the decorated terminal renderers.
func (ds *displayService) structuredFormat() bool {
	switch ds.config.OutputFormat {
	case string(FormatJSON), string(FormatYAML), string(FormatCompact):
		return true
	}
	return false
}

// paint colorizes text when both the config and the terminal allow it.
func (ds *displayService) paint(text string, tone Color) string {
	if ds.config.IsColorEnabled() && ds.colorSystem.IsColorSupported() {
		return ds.colorSystem.Colorize(text, tone)
	}
	return text
}

func (ds *displayService) printFormatted(outputType string, data interface{}) {
	output, err := ds.formatterRegistry.FormatOutput(OutputFormat(ds.config.OutputFormat), outputType, data)
	if err != nil {
		fmt.Fprintf(ds.writer, "Error formatting %s: %v\n", outputType, err)
		return
	}

	fmt.Fprint(ds.writer, output)
	fmt.Fprintln(ds.writer)
}

// Success reports a completed operation.
func (ds *displayService) Success(message string) {
	ds.printStatusMessage("SUCCESS", message, ds.theme().Success)
}

// Warning reports a condition worth attention that did not stop the run.
func (ds *displayService) Warning(message string) {
	ds.printStatusMessage("WARNING", message, ds.theme().Warning)
}

// Error reports a failure.
func (ds *displayService) Error(message string) {
	ds.printStatusMessage("ERROR", message, ds.theme().Error)
}

// Info reports progress detail, suppressed in quiet mode.
func (ds *displayService) Info(message string) {
	if ds.config.QuietMode {
		return
	}
	ds.printStatusMessage("INFO", message, ds.theme().Info)
}

func (ds *displayService) printStatusMessage(level, message string, tone Color) {
	if ds.structuredFormat() {
		ds.printFormatted("status", map[string]string{
			"level":   level,
			"message": message,
		})
		return
	}

	prefix := ds.paint(fmt.Sprintf("[%s]", level), tone)
	fmt.Fprintf(ds.writer, "%s %s\n", prefix, message)
}

// PrintHeader draws a double-ruled banner around the title.
func (ds *displayService) PrintHeader(title string) {
	if ds.config.QuietMode {
		return
	}

	separator := strings.Repeat("=", len(title)+4)
	header := fmt.Sprintf("\n%s\n  %s  \n%s\n", separator, title, separator)
	fmt.Fprint(ds.writer, ds.paint(header, ds.theme().Primary))
}

// PrintSection draws a dashed heading followed by the content.
func (ds *displayService) PrintSection(title string, content interface{}) {
	if ds.config.QuietMode {
		return
	}

	if ds.structuredFormat() {
		ds.printFormatted("section", map[string]interface{}{
			"title":   title,
			"content": content,
		})
		return
	}

	heading := fmt.Sprintf("\n--- %s ---\n", title)
	fmt.Fprint(ds.writer, ds.paint(heading, ds.theme().Highlight))
	fmt.Fprintf(ds.writer, "%v\n", content)
}

// PrintTable prints a formatted table. Structured formats still emit in
// quiet mode so scripted output is not lost.
func (ds *displayService) PrintTable(headers []string, rows [][]string) {
	if ds.config.QuietMode && !ds.structuredFormat() {
		return
	}

	if ds.structuredFormat() {
		ds.printFormatted("table", map[string]interface{}{
			"headers": headers,
			"rows":    rows,
		})
		return
	}

	ds.printTableFormatted(headers, rows)
}

// PrintRecord prints a single entity as aligned label/value lines
func (ds *displayService) PrintRecord(fields []Field) {
	if ds.config.QuietMode && !ds.structuredFormat() {
		return
	}

	if ds.structuredFormat() {
		ds.printFormatted("record", fields)
		return
	}

	labelWidth := 0
	for _, field := range fields {
		if len(field.Label) > labelWidth {
			labelWidth = len(field.Label)
		}
	}

	highlight := ds.theme().Highlight
	for _, field := range fields {
		label := ds.paint(fmt.Sprintf("%-*s", labelWidth, field.Label), highlight)
		fmt.Fprintf(ds.writer, "%s  %s\n", label, field.Value)
	}
}

func (ds *displayService) printTableFormatted(headers []string, rows [][]string) {
	formatter := NewTableFormatter(ds.colorSystem, ds.theme())
	formatter.SetStyle(ds.config.GetTableStyle())

	if len(headers) > 0 {
		formatter.SetHeaders(headers)
	}
	for _, row := range rows {
		formatter.AddRow(row)
	}

	formatter.RenderTo(ds.writer)
}

// RenderIcon resolves an icon name through the icon system.
func (ds *displayService) RenderIcon(name string) string {
	return ds.iconSystem.RenderIcon(name)
}

// RenderIconWithColor resolves an icon with its color applied.
func (ds *displayService) RenderIconWithColor(name string) string {
	return ds.iconSystem.RenderIconWithColor(name, ds.colorSystem)
}

// GetIconSystem exposes the icon system for direct use.
func (ds *displayService) GetIconSystem() IconSystem {
	return ds.iconSystem
}

// StartSpinner begins an animated spinner, a no-op handle in quiet mode.
func (ds *displayService) StartSpinner(message string) SpinnerHandle {
	if ds.config.QuietMode {
		return &noOpSpinner{}
	}

	style := DefaultSpinnerStyles["line"]
	if ds.iconSystem.IsUnicodeSupported() {
		style = DefaultSpinnerStyles["dots"]
	}

	spinner := ds.spinnerManager.createSpinner(message, style, ds.writer, ds.colorSystem, ds.theme())
	spinner.start()
	return spinner
}

// UpdateSpinner swaps the message of a running spinner.
func (ds *displayService) UpdateSpinner(handle SpinnerHandle, message string) {
	if ds.config.QuietMode {
		return
	}

	if spinner := ds.spinnerManager.getSpinner(handle); spinner != nil {
		spinner.updateMessage(message)
	}
}

// StopSpinner ends a spinner. The final message still prints in quiet
// mode since it reports the outcome, not progress.
func (ds *displayService) StopSpinner(handle SpinnerHandle, finalMessage string) {
	if ds.config.QuietMode {
		if finalMessage != "" {
			fmt.Fprintln(ds.writer, finalMessage)
		}
		return
	}

	spinner := ds.spinnerManager.getSpinner(handle)
	if spinner == nil {
		return
	}
	spinner.stop(finalMessage)
	ds.spinnerManager.removeSpinner(handle)
}

// ShowProgress draws an inline percentage line, ending it at completion.
func (ds *displayService) ShowProgress(current, total int, message string) {
	if ds.config.QuietMode || total <= 0 {
		return
	}

	percentage := float64(current) / float64(total) * 100
	if percentage > 100 {
		percentage = 100
	}

	progress := fmt.Sprintf("Progress: %.1f%% (%d/%d)", percentage, current, total)
	fmt.Fprintf(ds.writer, "\r%s %s", ds.paint(progress, ds.theme().Info), message)

	if current >= total {
		fmt.Fprintln(ds.writer)
	}
}

// NewProgressBar builds a bar wired to the service's writer and theme.
func (ds *displayService) NewProgressBar(total int, message string) *ProgressBar {
	return NewProgressBar(total, message, ds.writer, ds.colorSystem, ds.theme())
}

// NewProgressTracker builds a tracker wired to the service's writer and theme.
func (ds *displayService) NewProgressTracker(phases []string) *ProgressTracker {
	return NewProgressTracker(phases, ds.writer, ds.colorSystem, ds.theme())
}

// NewTableFormatter builds a formatter in the configured style.
func (ds *displayService) NewTableFormatter() TableFormatter {
	formatter := NewTableFormatter(ds.colorSystem, ds.theme())
	formatter.SetStyle(ds.config.GetTableStyle())
	return formatter
}

// NewSectionFormatter builds a section formatter on the service's writer.
func (ds *displayService) NewSectionFormatter() *SectionFormatter {
	return NewSectionFormatter(ds.colorSystem, ds.iconSystem, ds.theme(), ds.writer)
}

// RenderSection draws one section tree, suppressed in quiet mode.
func (ds *displayService) RenderSection(section *Section) {
	if ds.config.QuietMode {
		return
	}
	ds.NewSectionFormatter().RenderSection(section)
}

// RenderSections draws several section trees, suppressed in quiet mode.
func (ds *displayService) RenderSections(sections []*Section) {
	if ds.config.QuietMode {
		return
	}
	ds.NewSectionFormatter().RenderSections(sections)
}

// NewConfirmationDialog builds a dialog on the service's writer and theme.
func (ds *displayService) NewConfirmationDialog() *ConfirmationDialog {
	return NewConfirmationDialog(ds.colorSystem, ds.iconSystem, ds.theme(), ds.writer)
}

// NewConfirmationBuilder builds a dialog builder on the service's writer and theme.
func (ds *displayService) NewConfirmationBuilder() *ConfirmationBuilder {
	return NewConfirmationBuilder(ds.colorSystem, ds.iconSystem, ds.theme(), ds.writer)
}

// SetOutput redirects all subsequent output to writer.
func (ds *displayService) SetOutput(writer io.Writer) {
	ds.writer = writer
	ds.config.Writer = writer
}

// GetConfig exposes the live configuration.
func (ds *displayService) GetConfig() *DisplayConfig {
	return ds.config
}

// SetConfig swaps the configuration and re-resolves writer and theme.
func (ds *displayService) SetConfig(config *DisplayConfig) {
	ds.config = config
	if config.Writer != nil {
		ds.writer = config.Writer
	}
	ds.colorSystem.SetTheme(config.GetColorTheme())
}

// GetFormatterRegistry exposes the structured output formatters.
func (ds *displayService) GetFormatterRegistry() *FormatterRegistry {
	return ds.formatterRegistry
}

// noOpSpinner is returned in quiet mode so callers never branch on it
type noOpSpinner struct{}

func (n *noOpSpinner) ID() string     { return "noop" }
func (n *noOpSpinner) IsActive() bool { return false }
