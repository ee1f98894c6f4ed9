package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/storebench/internal/storebench/configuration"
	"github.com/armadaproject/storebench/internal/storebench/jobs"
	"github.com/armadaproject/storebench/internal/storebench/resultlog"
	"github.com/armadaproject/storebench/internal/storebench/scenario"
	"github.com/armadaproject/storebench/internal/storebench/worker"
)

func writeLog(t *testing.T) string {
	operations := 2
	sc, err := scenario.New(scenario.Spec{
		Name:           "cli",
		UserCount:      1,
		OperationCount: &operations,
		InitialFiles:   map[string]int{"tiny": 1},
		CrudProfile:    []float64{1, 1, 0, 0},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "results.log")
	out, err := resultlog.Create(path, sc, 0)
	require.NoError(t, err)

	completed := time.Unix(1700000000, 0)
	batch := []jobs.Result{
		jobs.NewSuccess("w1", jobs.Job{Type: jobs.CreateObject, SizeStr: "tiny", Container: "Picture", ObjectName: "PP1", ObjectSize: 99000},
			completed, 10*time.Millisecond, 20*time.Millisecond, "tx1", 0),
		jobs.NewSuccess("w1", jobs.Job{Type: jobs.ReadObject, SizeStr: "tiny", Container: "Picture", ObjectName: "SP000001", ObjectSize: 99000},
			completed.Add(time.Second), 5*time.Millisecond, 15*time.Millisecond, "tx2", 1),
	}
	raw, err := jobs.EncodeResults(batch)
	require.NoError(t, err)
	require.NoError(t, out.ProcessRawResults(raw))
	require.NoError(t, out.Finalize())
	return path
}

func TestWriteReports_Text(t *testing.T) {
	logPath := writeLog(t)
	dir := t.TempDir()
	opts := &reportOptions{
		output:       filepath.Join(dir, "report.txt"),
		rpsHistogram: filepath.Join(dir, "rps.csv"),
	}
	require.NoError(t, writeReports(logPath, 95, opts))

	report, err := os.ReadFile(opts.output)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Scenario: cli")
	assert.Contains(t, string(report), "TOTAL")

	histogram, err := os.ReadFile(opts.rpsHistogram)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(string(histogram)), "\n")))
}

func TestWriteReports_CSV(t *testing.T) {
	logPath := writeLog(t)
	opts := &reportOptions{csv: true, output: filepath.Join(t.TempDir(), "report.csv")}
	require.NoError(t, writeReports(logPath, 95, opts))

	report, err := os.ReadFile(opts.output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(report)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"scenario_name"`)
}

func TestWriteReports_MissingLog(t *testing.T) {
	assert.Error(t, writeReports(filepath.Join(t.TempDir(), "missing.log"), 95, &reportOptions{}))
}

func TestNewObjectStore(t *testing.T) {
	store, err := newObjectStore(context.Background(), configuration.StorageConfig{Type: "memory", MemoryLatency: time.Millisecond})
	require.NoError(t, err)
	memory, ok := store.(*worker.MemoryStore)
	require.True(t, ok)
	assert.Equal(t, time.Millisecond, memory.Latency)

	_, err = newObjectStore(context.Background(), configuration.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestLogStoreContents(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	store := worker.NewMemoryStore()
	_, err := store.CreateContainer(context.Background(), "Picture")
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "Picture", "SP000001", 10)
	require.NoError(t, err)

	logStoreContents(store)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.InfoLevel, entry.Level)
	assert.Equal(t, "Picture", entry.Data["container"])
	assert.Equal(t, 1, entry.Data["objects"])
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := []string{}
	for _, c := range RootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run-scenario", "worker", "report", "export"})
}
