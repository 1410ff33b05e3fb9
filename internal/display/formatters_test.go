package display

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// mustFormat fails the test on a formatter error and hands back the output.
func mustFormat(t *testing.T, result string, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("formatter failed: %v", err)
	}
	return result
}

// decodeJSON checks the formatter call succeeded and parses its JSON output.
func decodeJSON(t *testing.T, result string, err error, into interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("formatter failed: %v", err)
	}
	if err := json.Unmarshal([]byte(result), into); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
}

// decodeYAML is decodeJSON for the YAML formatter.
func decodeYAML(t *testing.T, result string, err error, into interface{}) {
	t.Helper()
	if err != nil {
		t.Fatalf("formatter failed: %v", err)
	}
	if err := yaml.Unmarshal([]byte(result), into); err != nil {
		t.Fatalf("Invalid YAML output: %v", err)
	}
}

func TestJSONFormatter(t *testing.T) {
	formatter := NewJSONFormatter()

	t.Run("FormatSection", func(t *testing.T) {
		result, err := formatter.FormatSection("Snapshot Summary", "3 snapshots on disk")

		var data map[string]interface{}
		decodeJSON(t, result, err, &data)

		if data["section"] != "Snapshot Summary" {
			t.Errorf("Expected section 'Snapshot Summary', got %v", data["section"])
		}
		if data["content"] != "3 snapshots on disk" {
			t.Errorf("Expected content '3 snapshots on disk', got %v", data["content"])
		}
	})

	t.Run("FormatTable", func(t *testing.T) {
		headers := []string{"ID", "Status", "Size"}
		rows := [][]string{
			{"snap-001", "complete", "1.2 MB"},
			{"snap-002", "pending", "-"},
		}

		result, err := formatter.FormatTable(headers, rows)

		var data []map[string]string
		decodeJSON(t, result, err, &data)

		if len(data) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(data))
		}
		if data[0]["ID"] != "snap-001" || data[0]["Status"] != "complete" {
			t.Errorf("First row data incorrect: %v", data[0])
		}
	})

	t.Run("FormatTableShortRow", func(t *testing.T) {
		result, err := formatter.FormatTable([]string{"A", "B"}, [][]string{{"only"}})

		var data []map[string]string
		decodeJSON(t, result, err, &data)

		if data[0]["B"] != "" {
			t.Errorf("Expected missing cell to render empty, got %q", data[0]["B"])
		}
	})

	t.Run("FormatRecord", func(t *testing.T) {
		fields := []Field{
			{Label: "ID", Value: "snap-001"},
			{Label: "Status", Value: "complete"},
			{Label: "Encrypted", Value: "yes"},
		}

		result, err := formatter.FormatRecord(fields)

		var data map[string]string
		decodeJSON(t, result, err, &data)

		if data["ID"] != "snap-001" || data["Encrypted"] != "yes" {
			t.Errorf("Record data incorrect: %v", data)
		}

		// Field order must survive in the raw output
		idPos := strings.Index(result, "\"ID\"")
		statusPos := strings.Index(result, "\"Status\"")
		if idPos < 0 || statusPos < 0 || idPos > statusPos {
			t.Errorf("Expected ID before Status in output:\n%s", result)
		}
	})

	t.Run("FormatStatusMessage", func(t *testing.T) {
		result, err := formatter.FormatStatusMessage("SUCCESS", "snapshot created")

		var data map[string]string
		decodeJSON(t, result, err, &data)

		if data["level"] != "SUCCESS" || data["message"] != "snapshot created" {
			t.Errorf("Status data incorrect: %v", data)
		}
	})
}

func TestYAMLFormatter(t *testing.T) {
	formatter := NewYAMLFormatter()

	t.Run("FormatSection", func(t *testing.T) {
		result, err := formatter.FormatSection("Import Summary", map[string]interface{}{"parsed": 10})

		var data map[string]interface{}
		decodeYAML(t, result, err, &data)

		if data["section"] != "Import Summary" {
			t.Errorf("Expected section 'Import Summary', got %v", data["section"])
		}
	})

	t.Run("FormatTable", func(t *testing.T) {
		result, err := formatter.FormatTable([]string{"Key", "Reason"}, [][]string{{"products.9.q", "unknown field"}})

		var data []map[string]string
		decodeYAML(t, result, err, &data)

		if len(data) != 1 || data[0]["Reason"] != "unknown field" {
			t.Errorf("Table data incorrect: %v", data)
		}
	})

	t.Run("FormatRecord", func(t *testing.T) {
		result, err := formatter.FormatRecord([]Field{
			{Label: "Snapshot", Value: "snap-001"},
			{Label: "Valid", Value: "yes"},
		})

		var data map[string]string
		decodeYAML(t, result, err, &data)

		if data["Snapshot"] != "snap-001" || data["Valid"] != "yes" {
			t.Errorf("Record data incorrect: %v", data)
		}
	})

	t.Run("FormatStatusMessage", func(t *testing.T) {
		result, err := formatter.FormatStatusMessage("ERROR", "restore failed")

		var data map[string]string
		decodeYAML(t, result, err, &data)

		if data["level"] != "ERROR" {
			t.Errorf("Expected level ERROR, got %v", data["level"])
		}
	})
}

func TestCompactFormatter(t *testing.T) {
	formatter := NewCompactFormatter()

	t.Run("FormatSection", func(t *testing.T) {
		out, err := formatter.FormatSection("retention", map[string]interface{}{
			"kept":    5,
			"deleted": 2,
		})
		result := mustFormat(t, out, err)

		// Keys are sorted, so deleted comes before kept
		if result != "SECTION:retention:deleted=2,kept=5" {
			t.Errorf("Unexpected compact section: %q", result)
		}
	})

	t.Run("FormatSectionString", func(t *testing.T) {
		out, err := formatter.FormatSection("note", "dry run")
		result := mustFormat(t, out, err)
		if result != "SECTION:note:dry run" {
			t.Errorf("Unexpected compact section: %q", result)
		}
	})

	t.Run("FormatTable", func(t *testing.T) {
		out, err := formatter.FormatTable([]string{"ID", "Status"}, [][]string{
			{"snap-001", "complete"},
			{"snap-002", "corrupt"},
		})
		result := mustFormat(t, out, err)

		lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("Expected 3 lines, got %d: %q", len(lines), result)
		}
		if lines[0] != "ID\tStatus" {
			t.Errorf("Unexpected header line: %q", lines[0])
		}
		if lines[2] != "snap-002\tcorrupt" {
			t.Errorf("Unexpected row line: %q", lines[2])
		}
	})

	t.Run("FormatTableWithoutHeaders", func(t *testing.T) {
		f := NewCompactFormatterWithOptions(",", false)
		out, err := f.FormatTable([]string{"A", "B"}, [][]string{{"1", "2"}})
		result := mustFormat(t, out, err)
		if result != "1,2\n" {
			t.Errorf("Unexpected output: %q", result)
		}
	})

	t.Run("FormatRecord", func(t *testing.T) {
		out, err := formatter.FormatRecord([]Field{
			{Label: "ID", Value: "run-1"},
			{Label: "Status", Value: "succeeded"},
		})
		result := mustFormat(t, out, err)
		if result != "ID=run-1\nStatus=succeeded\n" {
			t.Errorf("Unexpected record output: %q", result)
		}
	})

	t.Run("FormatStatusMessage", func(t *testing.T) {
		out, err := formatter.FormatStatusMessage("WARNING", "degraded run")
		result := mustFormat(t, out, err)
		if result != "STATUS:WARNING:degraded run" {
			t.Errorf("Unexpected status output: %q", result)
		}
	})

	t.Run("Accessors", func(t *testing.T) {
		f := NewCompactFormatter()
		f.SetSeparator(";")
		f.SetIncludeHeaders(false)
		if f.GetSeparator() != ";" {
			t.Errorf("Expected separator ';', got %q", f.GetSeparator())
		}
		if f.GetIncludeHeaders() {
			t.Error("Expected headers disabled")
		}
	})
}

func TestFormatterRegistry(t *testing.T) {
	registry := NewFormatterRegistry()

	t.Run("DefaultFormatters", func(t *testing.T) {
		for _, format := range []OutputFormat{FormatJSON, FormatYAML, FormatCompact} {
			if _, exists := registry.GetFormatter(format); !exists {
				t.Errorf("Expected formatter registered for %s", format)
			}
		}
		if _, exists := registry.GetFormatter(FormatTable); exists {
			t.Error("Table format should not use the registry")
		}
	})

	t.Run("FormatOutputSection", func(t *testing.T) {
		out, err := registry.FormatOutput(FormatCompact, "section", map[string]interface{}{
			"title":   "summary",
			"content": "done",
		})
		result := mustFormat(t, out, err)
		if result != "SECTION:summary:done" {
			t.Errorf("Unexpected output: %q", result)
		}
	})

	t.Run("FormatOutputTable", func(t *testing.T) {
		out, err := registry.FormatOutput(FormatJSON, "table", map[string]interface{}{
			"headers": []string{"ID"},
			"rows":    [][]string{{"snap-001"}},
		})
		result := mustFormat(t, out, err)
		if !strings.Contains(result, "snap-001") {
			t.Errorf("Expected row in output: %q", result)
		}
	})

	t.Run("FormatOutputRecord", func(t *testing.T) {
		out, err := registry.FormatOutput(FormatCompact, "record", []Field{
			{Label: "Outcome", Value: "success"},
		})
		result := mustFormat(t, out, err)
		if result != "Outcome=success\n" {
			t.Errorf("Unexpected output: %q", result)
		}
	})

	t.Run("FormatOutputStatus", func(t *testing.T) {
		out, err := registry.FormatOutput(FormatCompact, "status", map[string]string{
			"level":   "INFO",
			"message": "starting",
		})
		result := mustFormat(t, out, err)
		if result != "STATUS:INFO:starting" {
			t.Errorf("Unexpected output: %q", result)
		}
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		if _, err := registry.FormatOutput(FormatTable, "section", nil); err == nil {
			t.Error("Expected error for unsupported format")
		}
	})

	t.Run("UnsupportedOutputType", func(t *testing.T) {
		if _, err := registry.FormatOutput(FormatJSON, "sql", nil); err == nil {
			t.Error("Expected error for unsupported output type")
		}
	})

	t.Run("InvalidData", func(t *testing.T) {
		if _, err := registry.FormatOutput(FormatJSON, "record", "not fields"); err == nil {
			t.Error("Expected error for invalid record data")
		}
		if _, err := registry.FormatOutput(FormatJSON, "table", map[string]interface{}{}); err == nil {
			t.Error("Expected error for invalid table data")
		}
	})
}
