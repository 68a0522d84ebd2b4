package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyongames/sigil/internal/ir"
	"github.com/halcyongames/sigil/internal/store"
)

func seedTraceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	events := []ir.Achieved{
		{UnlockID: "hunter", DisplayName: "Hunter", RewardID: "badge/hunter", Seq: 1, Session: "s1"},
		{UnlockID: "daily", RewardID: "chest/daily", Seq: 2, Session: "s1"},
		{UnlockID: "daily", RewardID: "chest/daily", Seq: 3, Session: "s1"},
	}
	for _, ev := range events {
		require.NoError(t, st.AppendAchieved(ctx, ev))
	}
	return path
}

func TestTraceCommand_All(t *testing.T) {
	path := seedTraceDB(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "hunter")
	assert.Contains(t, output, "Hunter")
	assert.Contains(t, output, "reward=chest/daily")
	assert.Contains(t, output, "session=s1")
}

func TestTraceCommand_FilterByUnlock(t *testing.T) {
	path := seedTraceDB(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path, "--unlock", "daily"})

	require.NoError(t, cmd.Execute())
	assert.NotContains(t, buf.String(), "hunter")
	assert.Contains(t, buf.String(), "daily")
}

func TestTraceCommand_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No achieved events")
}

func TestTraceCommand_MissingDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", "/nonexistent/trace.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "database not found")
}
