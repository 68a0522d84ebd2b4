package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCommand_Text(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Compiled 2 unlock definition(s)")
	assert.Contains(t, output, "first-blood")
	assert.Contains(t, output, "daily")
	assert.Contains(t, output, "repeat=infinite")
}

func TestCompileCommand_JSON(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestCompileCommand_OutputFile(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})
	outPath := filepath.Join(t.TempDir(), "ir.json")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--output", outPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "IR written to "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Unlocks, 2)
	assert.Equal(t, "first-blood", result.Unlocks[0].ID)
}

func TestCompileCommand_MissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E005")
}

func TestCompileCommand_EmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestCompileCommand_BrokenDefinition(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": brokenDefs})

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "failed to compile")
}

func TestCalculateStats(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})
	result, errs := LoadDefs(dir, LoadModeFailFast)
	require.Empty(t, errs)

	stats := calculateStats(&CompilationResult{Unlocks: result.Defs})
	assert.Equal(t, 2, stats.UnlockCount)
	// quest/tutorial, stats/kills, quest/daily
	assert.Equal(t, 3, stats.TopicCount)
}
