package migration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCounts_Consistent(t *testing.T) {
	tests := []struct {
		name   string
		counts RunCounts
		want   bool
	}{
		{"empty run", RunCounts{}, true},
		{"all buckets sum", RunCounts{Parsed: 10, Inserted: 4, Updated: 3, SkippedDuplicate: 2, RejectedInvalid: 1}, true},
		{"inserts only", RunCounts{Parsed: 5, Inserted: 5}, true},
		{"lost group", RunCounts{Parsed: 5, Inserted: 4}, false},
		{"double counted group", RunCounts{Parsed: 5, Inserted: 5, Updated: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.counts.Consistent())
		})
	}
}

func TestImportRun_Validate(t *testing.T) {
	valid := func() *ImportRun {
		return &ImportRun{
			ID:        "import-20260101-020000-abcd1234",
			Format:    FormatJSON,
			StartedAt: time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC),
			Status:    RunStatusRunning,
		}
	}

	t.Run("valid run passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("empty ID fails", func(t *testing.T) {
		run := valid()
		run.ID = ""
		assert.Error(t, run.Validate())
	})

	t.Run("zero started-at fails", func(t *testing.T) {
		run := valid()
		run.StartedAt = time.Time{}
		assert.Error(t, run.Validate())
	})

	t.Run("unknown status fails", func(t *testing.T) {
		run := valid()
		run.Status = "paused"
		assert.Error(t, run.Validate())
	})

	t.Run("unknown format fails", func(t *testing.T) {
		run := valid()
		run.Format = "xml"
		assert.Error(t, run.Validate())
	})

	t.Run("succeeded run with inconsistent counts fails", func(t *testing.T) {
		run := valid()
		run.Status = RunStatusSucceeded
		run.Counts = RunCounts{Parsed: 3, Inserted: 1}
		err := run.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not sum")
	})

	t.Run("running run with inconsistent counts passes", func(t *testing.T) {
		run := valid()
		run.Counts = RunCounts{Parsed: 3, Inserted: 1}
		assert.NoError(t, run.Validate())
	})
}

func TestImportRun_Finish(t *testing.T) {
	run := &ImportRun{
		ID:        GenerateRunID(),
		Format:    FormatHTML,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}

	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	run.Finish(RunStatusSucceeded, at)

	assert.Equal(t, RunStatusSucceeded, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, at, *run.FinishedAt)
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	assert.True(t, strings.HasPrefix(id1, "import-"))
	assert.NotEqual(t, id1, id2)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{" html ", FormatHTML, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsUnsupportedFormat(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"export.json", FormatJSON, false},
		{"EXPORT.JSON", FormatJSON, false},
		{"backup-page.html", FormatHTML, false},
		{"backup-page.htm", FormatHTML, false},
		{"dump.xml", "", true},
		{"dump", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsUnsupportedFormat(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
