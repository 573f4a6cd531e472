package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/trash"
)

func findCommand(t *testing.T, path ...string) *cobra.Command {
	t.Helper()
	cmd, rest, err := newRootCommand().Find(path)
	require.NoError(t, err)
	require.Empty(t, rest)
	return cmd
}

func TestCommandTree(t *testing.T) {
	assert.Equal(t, "reclaim", findCommand(t, "trash", "reclaim").Name())
	assert.Equal(t, "candidates", findCommand(t, "trash", "candidates").Name())

	cmd := findCommand(t, "trash", "candidates")
	limit := cmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "100", limit.DefValue)
	assert.NotNil(t, cmd.InheritedFlags().Lookup("retention"))
	assert.NotNil(t, cmd.InheritedFlags().Lookup("json"))
}

func TestPrintReport(t *testing.T) {
	report := trash.Report{
		Cutoff:     time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Candidates: 3,
		Reclaimed:  []int64{1, 2},
		Failed:     []int64{3},
		Duration:   1500 * time.Millisecond,
	}

	cmd := &cobra.Command{}
	cmd.Flags().Bool("json", false, "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, printReport(cmd, report))
	assert.Contains(t, out.String(), "cutoff:     2026-03-05T00:00:00Z")
	assert.Contains(t, out.String(), "reclaimed:  2 [1 2]")
	assert.Contains(t, out.String(), "failed:     1 [3]")

	out.Reset()
	require.NoError(t, cmd.Flags().Set("json", "true"))
	require.NoError(t, printReport(cmd, report))

	var decoded trash.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, report.Reclaimed, decoded.Reclaimed)
}

func TestPrintCandidates(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("json", false, "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	cs := []trash.Candidate{{ID: 9, BookID: 4, File: "1_dune.pdf", TrashedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}}
	require.NoError(t, printCandidates(cmd, cs))

	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), "1_dune.pdf")
	assert.Contains(t, out.String(), "2026-02-01T00:00:00Z")
}
