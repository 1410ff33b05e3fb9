package display

import (
	"io"
)

// DisplayService is the single rendering surface for the CLI. Commands
// talk to it instead of writing to stdout directly, which keeps color,
// icon, and format decisions in one place.
type DisplayService interface {
	// Status lines
	Success(message string)
	Warning(message string)
	Error(message string)
	Info(message string)

	// Structured output
	PrintHeader(title string)
	PrintSection(title string, content interface{})
	PrintTable(headers []string, rows [][]string)
	PrintRecord(fields []Field)
	NewTableFormatter() TableFormatter
	NewSectionFormatter() *SectionFormatter
	RenderSection(section *Section)
	RenderSections(sections []*Section)

	// Icons
	RenderIcon(name string) string
	RenderIconWithColor(name string) string
	GetIconSystem() IconSystem

	// Long-running operation feedback
	StartSpinner(message string) SpinnerHandle
	UpdateSpinner(handle SpinnerHandle, message string)
	StopSpinner(handle SpinnerHandle, finalMessage string)
	ShowProgress(current, total int, message string)
	NewProgressBar(total int, message string) *ProgressBar
	NewProgressTracker(phases []string) *ProgressTracker

	// Prompts
	NewConfirmationDialog() *ConfirmationDialog
	NewConfirmationBuilder() *ConfirmationBuilder

	// Writer and format configuration
	SetOutput(writer io.Writer)
	GetConfig() *DisplayConfig
	SetConfig(config *DisplayConfig)
	GetFormatterRegistry() *FormatterRegistry
}

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatCompact OutputFormat = "compact"
)

// Field is a single labeled value in a record rendering
type Field struct {
	Label string
	Value string
}
