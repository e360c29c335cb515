package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/queue"
)

func writeLog(t *testing.T, dir string) string {
	t.Helper()
	zero := []string{"0.10", "0.12", "0.11", "0.13", "0.09", "0.10", "0.12", "0.11", "0.10", "0.12", "5.0"}

	var b strings.Builder
	b.WriteString("time,Benzene C6H6+\n")
	for i, v := range zero {
		fmt.Fprintf(&b, "2024-03-15 08:%02d:00,%s\n", i, v)
	}
	path := filepath.Join(dir, "20240315_trailer.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestZeroCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir)
	export := filepath.Join(dir, "flagged.csv")

	out, err := run(t, "zero", "--json", "-f", path, "--start", "08:00", "--end", "08:10", "-o", export)
	require.NoError(t, err)

	var report struct {
		Stats struct {
			Count int     `json:"count"`
			Mean  float64 `json:"mean"`
		} `json:"stats"`
		Flagged int `json:"flagged_rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 10, report.Stats.Count)
	assert.InDelta(t, 0.11, report.Stats.Mean, 1e-9)
	assert.Equal(t, 11, report.Flagged)

	exported, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(exported), "Audit Flag")
}

func TestZeroCommand_Table(t *testing.T) {
	path := writeLog(t, t.TempDir())

	out, err := run(t, "zero", "-f", path, "--start", "08:00", "--end", "08:10")
	require.NoError(t, err)
	assert.Contains(t, out, "Zero air")
	assert.Contains(t, out, "Flagged rows")
	assert.Contains(t, out, "0.1100")
}

func TestCommands_Errors(t *testing.T) {
	path := writeLog(t, t.TempDir())

	_, err := run(t, "zero", "-f", path, "--start", "08:00")
	assert.Error(t, err, "missing --end")

	_, err = run(t, "zero", "-f", path, "--start", "09:00", "--end", "09:10")
	assert.Error(t, err)

	_, err = run(t, "cal", "-f", path, "--start", "08:00", "--end", "08:10", "--concentration", "0")
	assert.Error(t, err)

	_, err = run(t, "zero", "-f", "missing.csv", "--start", "08:00", "--end", "08:10")
	assert.Error(t, err)
}

func TestParseEventTypes(t *testing.T) {
	all, err := parseEventTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, queue.EventTypes, all)

	got, err := parseEventTypes([]string{"ZERO", " imet"})
	require.NoError(t, err)
	assert.Equal(t, []queue.EventType{queue.EventZeroAir, queue.EventMet}, got)

	_, err = parseEventTypes([]string{"forecast"})
	assert.Error(t, err)
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)
	line := formatEvent(&queue.AuditEvent{
		Type:      queue.EventCalibration,
		SessionID: "s1",
		AuditDate: "20240315",
		Channel:   "Benzene C6H6+",
		Window:    dataset.Window{Start: at, End: at.Add(10 * time.Minute)},
		Flagged:   11,
		Timestamp: at,
	})
	assert.Equal(t, `2024-03-15T15:00:00Z cal  session=s1 date=20240315 channel="Benzene C6H6+" window=15:00-15:10 flagged=11`, line)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "auditctl dev"))
}
