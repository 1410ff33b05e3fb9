package display

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormatter renders the display primitives in one output format.
type OutputFormatter interface {
	FormatSection(title string, content interface{}) (string, error)
	FormatTable(headers []string, rows [][]string) (string, error)
	FormatRecord(fields []Field) (string, error)
	FormatStatusMessage(level, message string) (string, error)
}

// tableRowMaps converts positional rows into header-keyed maps. Short
// rows are padded with empty strings so every map carries every header.
func tableRowMaps(headers []string, rows [][]string) []map[string]string {
	var data []map[string]string
	for _, row := range rows {
		rowMap := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				rowMap[header] = row[i]
			} else {
				rowMap[header] = ""
			}
		}
		data = append(data, rowMap)
	}
	return data
}

// JSONFormatter implements OutputFormatter for JSON output
type JSONFormatter struct {
	indent string
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{indent: "  "}
}

func (f *JSONFormatter) render(what string, data interface{}) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", f.indent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(jsonData), nil
}

// FormatSection formats a section as JSON
func (f *JSONFormatter) FormatSection(title string, content interface{}) (string, error) {
	return f.render("section", map[string]interface{}{
		"section": title,
		"content": content,
	})
}

// FormatTable formats a table as JSON
func (f *JSONFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	return f.render("table", tableRowMaps(headers, rows))
}

// FormatRecord formats a single labeled record as JSON, preserving field order
func (f *JSONFormatter) FormatRecord(fields []Field) (string, error) {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, field := range fields {
		key, err := json.Marshal(field.Label)
		if err != nil {
			return "", fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		sb.WriteString(f.indent)
		sb.Write(key)
		sb.WriteString(": ")
		sb.Write(value)
		if i < len(fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String(), nil
}

// FormatStatusMessage formats a status message as JSON
func (f *JSONFormatter) FormatStatusMessage(level, message string) (string, error) {
	return f.render("status message", map[string]string{
		"level":   level,
		"message": message,
	})
}

// YAMLFormatter implements OutputFormatter for YAML output
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) render(what string, data interface{}) (string, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to YAML: %w", what, err)
	}
	return string(yamlData), nil
}

// FormatSection formats a section as YAML
func (f *YAMLFormatter) FormatSection(title string, content interface{}) (string, error) {
	return f.render("section", map[string]interface{}{
		"section": title,
		"content": content,
	})
}

// FormatTable formats a table as YAML
func (f *YAMLFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	return f.render("table", tableRowMaps(headers, rows))
}

// FormatRecord formats a single labeled record as YAML
func (f *YAMLFormatter) FormatRecord(fields []Field) (string, error) {
	var sb strings.Builder
	for _, field := range fields {
		line, err := yaml.Marshal(map[string]string{field.Label: field.Value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal record to YAML: %w", err)
		}
		sb.Write(line)
	}
	return sb.String(), nil
}

// FormatStatusMessage formats a status message as YAML
func (f *YAMLFormatter) FormatStatusMessage(level, message string) (string, error) {
	return f.render("status message", map[string]string{
		"level":   level,
		"message": message,
	})
}

// CompactFormatter implements OutputFormatter for compact/scripting output.
// It provides minimal, machine-readable output suitable for automation,
// e.g. piping `backup list --format compact` into awk.
type CompactFormatter struct {
	separator      string
	includeHeaders bool
}

// NewCompactFormatter builds the default tab-separated formatter.
func NewCompactFormatter() *CompactFormatter {
	return NewCompactFormatterWithOptions("\t", true)
}

// NewCompactFormatterWithOptions picks the separator and header behavior.
func NewCompactFormatterWithOptions(separator string, includeHeaders bool) *CompactFormatter {
	return &CompactFormatter{
		separator:      separator,
		includeHeaders: includeHeaders,
	}
}

// FormatSection formats a section in compact format.
// Output format: SECTION:title:key=value,key=value
func (f *CompactFormatter) FormatSection(title string, content interface{}) (string, error) {
	var body string
	switch v := content.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		pairs := make([]string, len(keys))
		for i, key := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", key, v[key])
		}
		body = strings.Join(pairs, ",")
	case string:
		body = v
	default:
		body = fmt.Sprintf("%v", content)
	}

	return fmt.Sprintf("SECTION:%s:%s", title, body), nil
}

// FormatTable formats a table as separator-separated values, TSV by default
func (f *CompactFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	var result strings.Builder

	if f.includeHeaders && len(headers) > 0 {
		result.WriteString(strings.Join(headers, f.separator))
		result.WriteString("\n")
	}

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		result.WriteString(strings.Join(cells, f.separator))
		result.WriteString("\n")
	}

	return result.String(), nil
}

// FormatRecord formats a record as one label=value pair per line
func (f *CompactFormatter) FormatRecord(fields []Field) (string, error) {
	var sb strings.Builder
	for _, field := range fields {
		sb.WriteString(field.Label)
		sb.WriteString("=")
		sb.WriteString(field.Value)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// FormatStatusMessage formats a status message in compact format.
// Output format: STATUS:level:message
func (f *CompactFormatter) FormatStatusMessage(level, message string) (string, error) {
	return fmt.Sprintf("STATUS:%s:%s", level, message), nil
}

// SetSeparator swaps the field separator for table output.
func (f *CompactFormatter) SetSeparator(separator string) {
	f.separator = separator
}

// SetIncludeHeaders toggles the header row of table output.
func (f *CompactFormatter) SetIncludeHeaders(include bool) {
	f.includeHeaders = include
}

// GetSeparator reports the active field separator.
func (f *CompactFormatter) GetSeparator() string {
	return f.separator
}

// GetIncludeHeaders reports whether the header row is emitted.
func (f *CompactFormatter) GetIncludeHeaders() bool {
	return f.includeHeaders
}

// FormatterRegistry maps output formats to their formatters.
type FormatterRegistry struct {
	formatters map[OutputFormat]OutputFormatter
}

// NewFormatterRegistry builds a registry with the JSON, YAML, and compact
// formatters pre-registered.
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{
		formatters: map[OutputFormat]OutputFormatter{
			FormatJSON:    NewJSONFormatter(),
			FormatYAML:    NewYAMLFormatter(),
			FormatCompact: NewCompactFormatter(),
		},
	}
}

// Register adds or replaces the formatter for a format.
func (r *FormatterRegistry) Register(format OutputFormat, formatter OutputFormatter) {
	r.formatters[format] = formatter
}

// GetFormatter looks up the formatter for a format.
func (r *FormatterRegistry) GetFormatter(format OutputFormat) (OutputFormatter, bool) {
	formatter, exists := r.formatters[format]
	return formatter, exists
}

// FormatOutput routes data to the formatter method matching outputType.
// The data shapes mirror what displayService.printFormatted passes in.
func (r *FormatterRegistry) FormatOutput(format OutputFormat, outputType string, data interface{}) (string, error) {
	formatter, exists := r.GetFormatter(format)
	if !exists {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}

	switch outputType {
	case "section":
		return formatSectionData(formatter, data)
	case "table":
		return formatTableData(formatter, data)
	case "record":
		fields, ok := data.([]Field)
		if !ok {
			return "", fmt.Errorf("invalid record data format")
		}
		return formatter.FormatRecord(fields)
	case "status":
		return formatStatusData(formatter, data)
	default:
		return "", fmt.Errorf("unsupported output type: %s", outputType)
	}
}

func formatSectionData(formatter OutputFormatter, data interface{}) (string, error) {
	sectionData, ok := data.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid section data format")
	}

	title, titleOK := sectionData["title"].(string)
	content, contentOK := sectionData["content"]
	if !titleOK || !contentOK {
		return "", fmt.Errorf("invalid section data format")
	}

	return formatter.FormatSection(title, content)
}

func formatTableData(formatter OutputFormatter, data interface{}) (string, error) {
	tableData, ok := data.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid table data format")
	}

	headers, headersOK := tableData["headers"].([]string)
	rows, rowsOK := tableData["rows"].([][]string)
	if !headersOK || !rowsOK {
		return "", fmt.Errorf("invalid table data format")
	}

	return formatter.FormatTable(headers, rows)
}

func formatStatusData(formatter OutputFormatter, data interface{}) (string, error) {
	statusData, ok := data.(map[string]string)
	if !ok {
		return "", fmt.Errorf("invalid status message data format")
	}

	level, levelOK := statusData["level"]
	message, messageOK := statusData["message"]
	if !levelOK || !messageOK {
		return "", fmt.Errorf("invalid status message data format")
	}

	return formatter.FormatStatusMessage(level, message)
}
