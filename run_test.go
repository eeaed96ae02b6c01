package dataprofiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proflow/dataprofiler/aggregator"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func testRunConfig(t *testing.T) RunConfig {
	cfg := DefaultRunConfig()
	cfg.WorkspaceDir = t.TempDir()
	return cfg
}

func TestRunProfile_FullPipelineInfersTypesAndCounts(t *testing.T) {
	path := writeTempCSV(t, "id,name,amount,signup_date\n"+
		"1,Alice,19.99,2024-01-15\n"+
		"2,Bob,5.00,2024-02-20\n"+
		"3,Carol,,2024-03-01\n"+
		"4,Dave,42.50,2024-04-10\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	prof, err := RunProfile(context.Background(), run, path, Deps{})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(int64(4), prof.File.Rows)
	assert.Equal(4, prof.File.Columns)
	assert.Equal(StateCompleted, run.State)

	byName := make(map[string]ColumnProfile, len(prof.Columns))
	for _, c := range prof.Columns {
		byName[c.Name] = c
	}

	assert.Equal("numeric", byName["id"].Type)
	assert.Equal("alpha", byName["name"].Type)
	assert.Equal("money", byName["amount"].Type)
	assert.Equal(int64(1), byName["amount"].NullCount)
	assert.Equal("date", byName["signup_date"].Type)
}

func TestRunProfile_SingleColumnCandidateKeyIsDetected(t *testing.T) {
	path := writeTempCSV(t, "id,status\n1,active\n2,active\n3,inactive\n4,active\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	prof, err := RunProfile(context.Background(), run, path, Deps{})
	require.NoError(t, err)

	var foundIDKey bool
	for _, ck := range prof.CandidateKeys {
		if len(ck.Columns) == 1 && ck.Columns[0] == 0 {
			foundIDKey = true
		}
	}
	assert.True(t, foundIDKey, "the all-distinct id column should surface as a single-column candidate key")
}

func TestRunProfile_JaggedRowIsCatastrophic(t *testing.T) {
	path := writeTempCSV(t, "a,b,c\n1,2,3\n1,2\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	_, err = RunProfile(context.Background(), run, path, Deps{})
	require.Error(t, err)

	var failed RunFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, aggregator.EJaggedRow, failed.Cause.Code)
	assert.Equal(t, StateFailed, run.State)
}

func TestRunProfile_EmptyHeaderIsCatastrophic(t *testing.T) {
	path := writeTempCSV(t, "\n1,2,3\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	_, err = RunProfile(context.Background(), run, path, Deps{})
	require.Error(t, err)

	var failed RunFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, aggregator.EHeaderEmpty, failed.Cause.Code)
}

func TestRunProfile_DuplicateHeaderNameIsRecordedAsError(t *testing.T) {
	path := writeTempCSV(t, "id,id,name\n1,2,Alice\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	prof, err := RunProfile(context.Background(), run, path, Deps{})
	require.NoError(t, err)

	var found bool
	for _, e := range prof.Errors {
		if e.Code == aggregator.EHeaderDuplicate {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunProfile_CancelledContextStopsProcessingEarly(t *testing.T) {
	var rows string
	for i := 0; i < 10_000; i++ {
		rows += "1,2\n"
	}
	path := writeTempCSV(t, "a,b\n"+rows)

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before the first row is read

	_, err = RunProfile(ctx, run, path, Deps{})
	require.Error(t, err)

	var cancelled CancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, StateFailed, run.State)
}

func TestRunProfile_NowOverrideDrivesDateRangeWarnings(t *testing.T) {
	path := writeTempCSV(t, "event_date\n1899-12-31\n2024-01-01\n")

	run, err := NewRun(testRunConfig(t))
	require.NoError(t, err)

	fixedNow := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	prof, err := RunProfile(context.Background(), run, path, Deps{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	var found bool
	for _, w := range prof.Warnings {
		if w.Code == aggregator.WDateRange {
			found = true
		}
	}
	assert.True(t, found)
}
