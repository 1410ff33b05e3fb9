package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"inventory-vault/internal/backup"
	"inventory-vault/internal/migration"
)

// Views translate domain records into the display primitives, so the
// same data renders as a decorated table on a terminal or as rows in
// JSON/YAML/compact output without the commands knowing the difference.

const timeLayout = "2006-01-02 15:04:05"

// SnapshotTableHeaders returns the column headers for snapshot listings
func SnapshotTableHeaders() []string {
	return []string{"ID", "Created", "Status", "Size", "Tables", "Rows", "Compression", "Encrypted"}
}

// SnapshotTableRows converts snapshot records into table rows
func SnapshotTableRows(records []*backup.SnapshotRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.ID,
			record.CreatedAt.Format(timeLayout),
			string(record.Status),
			formatBytes(record.SizeBytes),
			fmt.Sprintf("%d", record.TableCount),
			fmt.Sprintf("%d", record.RowCount),
			string(record.Compression),
			yesNo(record.Encrypted),
		})
	}
	return rows
}

// SnapshotFields returns the full detail view of a single snapshot
func SnapshotFields(record *backup.SnapshotRecord) []Field {
	fields := []Field{
		{Label: "ID", Value: record.ID},
		{Label: "Status", Value: string(record.Status)},
		{Label: "Created", Value: record.CreatedAt.Format(timeLayout)},
		{Label: "Finished", Value: formatOptionalTime(record.FinishedAt)},
		{Label: "Duration", Value: formatDuration(record.Duration)},
		{Label: "Size", Value: formatBytes(record.SizeBytes)},
		{Label: "Tables", Value: fmt.Sprintf("%d", record.TableCount)},
		{Label: "Rows", Value: fmt.Sprintf("%d", record.RowCount)},
		{Label: "Compression", Value: string(record.Compression)},
		{Label: "Encrypted", Value: yesNo(record.Encrypted)},
		{Label: "Checksum", Value: record.Checksum},
		{Label: "Location", Value: record.Location},
	}
	if record.Message != "" {
		fields = append(fields, Field{Label: "Message", Value: record.Message})
	}
	return fields
}

// RestoreJobTableHeaders returns the column headers for restore job listings
func RestoreJobTableHeaders() []string {
	return []string{"ID", "Snapshot", "Requested", "Finished", "Outcome"}
}

// RestoreJobTableRows converts restore jobs into table rows
func RestoreJobTableRows(jobs []*backup.RestoreJob) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.ID,
			job.SnapshotID,
			job.RequestedAt.Format(timeLayout),
			formatOptionalTime(job.FinishedAt),
			string(job.Outcome),
		})
	}
	return rows
}

// RestoreJobFields returns the full detail view of a single restore job
func RestoreJobFields(job *backup.RestoreJob) []Field {
	fields := []Field{
		{Label: "ID", Value: job.ID},
		{Label: "Snapshot", Value: job.SnapshotID},
		{Label: "Requested", Value: job.RequestedAt.Format(timeLayout)},
		{Label: "Finished", Value: formatOptionalTime(job.FinishedAt)},
		{Label: "Outcome", Value: string(job.Outcome)},
	}
	if job.ErrorDetail != "" {
		fields = append(fields, Field{Label: "Error", Value: job.ErrorDetail})
	}
	return fields
}

// VerificationFields returns the detail view of a verification result
func VerificationFields(result *backup.VerificationResult) []Field {
	fields := []Field{
		{Label: "Snapshot", Value: result.SnapshotID},
		{Label: "Valid", Value: yesNo(result.Valid)},
		{Label: "Checksum", Value: passFail(result.ChecksumValid)},
		{Label: "Checked", Value: result.CheckedAt.Format(timeLayout)},
	}
	if len(result.Errors) > 0 {
		fields = append(fields, Field{Label: "Errors", Value: strings.Join(result.Errors, "; ")})
	}
	return fields
}

// RetentionSections builds the section tree for a retention pass report
func RetentionSections(result *backup.RetentionResult) []*Section {
	title := "Retention Pass"
	if result.DryRun {
		title = "Retention Pass (dry run)"
	}

	root := NewSection(title)
	stats := NewSectionStatistics()
	stats.ItemCount = len(result.Deleted) + len(result.Kept)
	stats.ErrorCount = len(result.Errors)
	stats.AddCustomStat("Deleted", len(result.Deleted))
	stats.AddCustomStat("Kept", len(result.Kept))
	root.SetStatistics(stats)
	root.SetContent(map[string]interface{}{
		"Run at":   result.RunAt.Format(timeLayout),
		"Duration": formatDuration(result.ProcessingTime),
	})

	if len(result.Deleted) > 0 {
		deleted := NewSection("Deleted Snapshots")
		deleted.SetContent(result.Deleted)
		root.AddSubsection(deleted)
	}

	if len(result.Kept) > 0 {
		kept := NewSection("Kept Snapshots")
		kept.SetContent(result.Kept)
		kept.SetCollapsible(true)
		root.AddSubsection(kept)
	}

	if len(result.Errors) > 0 {
		errs := NewSection("Errors")
		errs.SetContent(result.Errors)
		root.AddSubsection(errs)
	}

	return []*Section{root}
}

// ImportRunTableHeaders returns the column headers for import run listings
func ImportRunTableHeaders() []string {
	return []string{"ID", "Started", "Status", "Source", "Parsed", "Inserted", "Updated", "Rejected"}
}

// ImportRunTableRows converts import runs into table rows
func ImportRunTableRows(runs []*migration.ImportRun) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Format(timeLayout),
			runStatusLabel(run),
			run.SourceFile,
			fmt.Sprintf("%d", run.Counts.Parsed),
			fmt.Sprintf("%d", run.Counts.Inserted),
			fmt.Sprintf("%d", run.Counts.Updated),
			fmt.Sprintf("%d", run.Counts.RejectedInvalid),
		})
	}
	return rows
}

// ImportRunSections builds the section tree for an import run report
func ImportRunSections(run *migration.ImportRun) []*Section {
	root := NewSection(fmt.Sprintf("Import Run %s", run.ID))

	stats := NewSectionStatistics()
	stats.ItemCount = run.Counts.Parsed
	stats.SuccessCount = run.Counts.Inserted + run.Counts.Updated
	stats.WarningCount = run.Counts.SkippedDuplicate
	stats.ErrorCount = run.Counts.RejectedInvalid
	root.SetStatistics(stats)

	content := map[string]interface{}{
		"Source":   run.SourceFile,
		"Format":   string(run.Format),
		"Started":  run.StartedAt.Format(timeLayout),
		"Finished": formatOptionalTime(run.FinishedAt),
		"Status":   runStatusLabel(run),
	}
	if run.ErrorDetail != "" {
		content["Error"] = run.ErrorDetail
	}
	root.SetContent(content)

	if len(run.EntityCounts) > 0 {
		entities := NewSection("Entities")
		names := make([]string, 0, len(run.EntityCounts))
		for name := range run.EntityCounts {
			names = append(names, name)
		}
		sort.Strings(names)

		lines := make([]string, 0, len(names))
		for _, name := range names {
			counts := run.EntityCounts[name]
			lines = append(lines, fmt.Sprintf("%s: %d inserted, %d updated, %d skipped, %d rejected",
				name, counts.Inserted, counts.Updated, counts.SkippedDuplicate, counts.RejectedInvalid))
		}
		entities.SetContent(lines)
		root.AddSubsection(entities)
	}

	if len(run.Rejects) > 0 {
		rejects := NewSection("Rejected Records")
		lines := make([]string, 0, len(run.Rejects))
		for _, reject := range run.Rejects {
			line := fmt.Sprintf("%s: %s", reject.Key, reject.Reason)
			if reject.Provenance != "" {
				line = fmt.Sprintf("%s [%s]", line, reject.Provenance)
			}
			lines = append(lines, line)
		}
		rejects.SetContent(lines)
		root.AddSubsection(rejects)
	}

	return []*Section{root}
}

// RejectTableHeaders returns the column headers for reject listings
func RejectTableHeaders() []string {
	return []string{"Key", "Reason", "Provenance"}
}

// RejectTableRows converts rejects into table rows
func RejectTableRows(rejects []migration.Reject) [][]string {
	rows := make([][]string, 0, len(rejects))
	for _, reject := range rejects {
		rows = append(rows, []string{reject.Key, reject.Reason, reject.Provenance})
	}
	return rows
}

// runStatusLabel folds the degraded flag into the status text
func runStatusLabel(run *migration.ImportRun) string {
	if run.Degraded && run.Status == migration.RunStatusSucceeded {
		return string(run.Status) + " (degraded)"
	}
	return string(run.Status)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func passFail(v bool) string {
	if v {
		return "ok"
	}
	return "mismatch"
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

// formatDuration rounds for readability, sub-minute values keep
// centisecond precision
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	if d < time.Minute {
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
