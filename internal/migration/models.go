// Package migration ingests legacy inventory exports into the live store.
// The importer parses JSON or HTML-embedded localStorage payloads into flat
// key-path records, and the reconciliation engine merges those records into
// the canonical schema by natural key, one transaction per run.
package migration

import (
	"fmt"
	"strings"
	"time"

	"inventory-vault/internal/backup"
)

// Format identifies the encoding of a legacy export payload
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// RunStatus is the lifecycle state of an import run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// LegacyRecord is one flattened key/value pair extracted from a legacy
// export. Key is the dotted leaf path, Value the raw string form of the
// leaf. Timestamp is set only when the leaf itself carries an update
// marker the reconciler can use for conflict resolution. Records live for
// the duration of one run and are never persisted.
type LegacyRecord struct {
	Key        string
	Value      string
	Provenance string
	Timestamp  *time.Time
}

// Reject is a diagnostic for a record or group that could not be applied
type Reject struct {
	Key        string `json:"key"`
	Reason     string `json:"reason"`
	Provenance string `json:"provenance,omitempty"`
}

// RunCounts summarizes how each parsed entity group ended up. Every group
// lands in exactly one bucket, so the four buckets sum to Parsed.
type RunCounts struct {
	Parsed           int `json:"parsed"`
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	RejectedInvalid  int `json:"rejected_invalid"`
}

// Consistent reports whether the outcome buckets sum to the parsed count
func (rc RunCounts) Consistent() bool {
	return rc.Inserted+rc.Updated+rc.SkippedDuplicate+rc.RejectedInvalid == rc.Parsed
}

// EntityCounts is the per-entity slice of the run outcome
type EntityCounts struct {
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	RejectedInvalid  int `json:"rejected_invalid"`
}

// ImportRun is the audit record of one migration invocation. Immutable
// once finished.
type ImportRun struct {
	ID           string                  `json:"id"`
	SourceFile   string                  `json:"source_file,omitempty"`
	Format       Format                  `json:"format"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   *time.Time              `json:"finished_at,omitempty"`
	Status       RunStatus               `json:"status"`
	Degraded     bool                    `json:"degraded"`
	Counts       RunCounts               `json:"counts"`
	EntityCounts map[string]EntityCounts `json:"entity_counts,omitempty"`
	Rejects      []Reject                `json:"rejects,omitempty"`
	ErrorDetail  string                  `json:"error_detail,omitempty"`
}

// Validate validates the ImportRun
func (ir *ImportRun) Validate() error {
	if ir.ID == "" {
		return fmt.Errorf("import run ID cannot be empty")
	}

	if ir.StartedAt.IsZero() {
		return fmt.Errorf("import run started-at cannot be zero")
	}

	if !isValidRunStatus(ir.Status) {
		return fmt.Errorf("invalid import run status: %s", ir.Status)
	}

	if !isValidFormat(ir.Format) {
		return fmt.Errorf("invalid import format: %s", ir.Format)
	}

	if ir.Status == RunStatusSucceeded && !ir.Counts.Consistent() {
		return fmt.Errorf("import run counts do not sum to parsed: %+v", ir.Counts)
	}

	return nil
}

// Finish stamps the terminal state onto the run
func (ir *ImportRun) Finish(status RunStatus, at time.Time) {
	ir.Status = status
	ir.FinishedAt = &at
}

// GenerateRunID generates a unique import run ID
func GenerateRunID() string {
	return backup.GenerateIDWithPrefix("import")
}

// ParseFormat resolves a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", NewUnsupportedFormatError(fmt.Sprintf("unsupported format %q, use json or html", s), nil)
	}
}

// FormatFromPath infers the payload format from a file extension
func FormatFromPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return FormatHTML, nil
	default:
		return "", NewUnsupportedFormatError(fmt.Sprintf("unsupported file type %q, use .json or .html", path), nil)
	}
}

func isValidRunStatus(status RunStatus) bool {
	switch status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return true
	}
	return false
}

func isValidFormat(format Format) bool {
	switch format {
	case FormatJSON, FormatHTML:
		return true
	}
	return false
}
