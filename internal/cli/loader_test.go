package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDefs = `
package defs

unlock: "first-blood": {
	display_name: "First Blood"
	reward:       "badge/first-blood"
	repeat:       "once"
	condition: {
		all: [
			{completed: "quest/tutorial"},
			{value: {topic: "stats/kills", op: "ge", target: 1}},
		]
	}
}

unlock: daily: {
	reward: "chest/daily"
	repeat: "infinite"
	condition: {completed: "quest/daily"}
}
`

const brokenDefs = `
package defs

unlock: broken: {
	repeat: "once"
	condition: {completed: "quest/a"}
}
`

// writeDefsDir writes CUE sources into a fresh temp directory.
func writeDefsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadDefs_Valid(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})

	result, errs := LoadDefs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Defs, 2)
	assert.Equal(t, "first-blood", result.Defs[0].ID)
	assert.Equal(t, "daily", result.Defs[1].ID)
}

func TestLoadDefs_MissingDirectory(t *testing.T) {
	result, errs := LoadDefs("/nonexistent/path", LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDefs_NotADirectory(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": validDefs})

	_, errs := LoadDefs(filepath.Join(dir, "defs.cue"), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDefs_EmptyDirectory(t *testing.T) {
	_, errs := LoadDefs(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadDefs_MissingReward(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": brokenDefs})

	result, errs := LoadDefs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeMissingReward, loadErr.Code)
}

func TestLoadDefs_CollectAllKeepsGoing(t *testing.T) {
	dir := writeDefsDir(t, map[string]string{"defs.cue": `
package defs

unlock: bad_one: {
	repeat: "once"
	condition: {completed: "a"}
}
unlock: good_one: {
	reward: "r"
	repeat: "once"
	condition: {completed: "a"}
}
unlock: bad_two: {
	reward: "r"
	repeat: "sometimes"
	condition: {completed: "a"}
}
`})

	result, errs := LoadDefs(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	assert.Len(t, errs, 2)
	require.Len(t, result.Defs, 1)
	assert.Equal(t, "good_one", result.Defs[0].ID)
}

func TestFindCUEFiles_Recursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root.cue"), []byte("package defs"), 0o644))
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.cue"), []byte("package defs"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeMissingID, MapFieldToErrorCode("id"))
	assert.Equal(t, ErrCodeMissingReward, MapFieldToErrorCode("reward"))
	assert.Equal(t, ErrCodeInvalidRepeat, MapFieldToErrorCode("repeat"))
	assert.Equal(t, ErrCodeInvalidCond, MapFieldToErrorCode("condition"))
	assert.Equal(t, ErrCodeInvalidCond, MapFieldToErrorCode("always"))
	assert.Equal(t, ErrCodeInvalidValue, MapFieldToErrorCode("value.op"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("whatever"))
}
