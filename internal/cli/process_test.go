package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessCommand_MissingFilesFail(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewProcessCommand(rootOpts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	dir := t.TempDir()
	err := runProcess(
		&ProcessOptions{RootOptions: rootOpts, OutputDir: dir},
		[]string{filepath.Join(dir, "s.dcm"), filepath.Join(dir, "p.dcm")},
		cmd,
	)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "failed")
}

func TestProcessCommand_RequiresTwoArgs(t *testing.T) {
	cmd := NewProcessCommand(&RootOptions{Format: "text"})
	cmd.SetArgs([]string{"only-one.dcm"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestProcessResult_String(t *testing.T) {
	written := processResult{Status: "written", ReportPath: "/out/Centroid_P1.txt"}
	assert.Contains(t, written.String(), "/out/Centroid_P1.txt")

	skipped := processResult{Status: "skipped", Reason: "patient ID mismatch"}
	assert.Contains(t, skipped.String(), "patient ID mismatch")
}

func TestPipelineArchiver_NoopWhenUnset(t *testing.T) {
	a := pipelineArchiver("")
	require.NotNil(t, a)
	assert.NoError(t, a.Move("anything", ""))

	assert.Nil(t, pipelineArchiver("/backup"), "nil lets the pipeline use the production mover")
}
