package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/dispatch"
	"github.com/lguelzow/CoreasSpellcaster/internal/store"
	"github.com/lguelzow/CoreasSpellcaster/internal/testutil"
)

// seedLedger records two sessions; 016027 fails in the first and
// succeeds in the second.
func seedLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	clock := testutil.NewSteppingClock(time.Minute)

	for i, sess := range []string{"session-a", "session-b"} {
		require.NoError(t, st.BeginSession(ctx, store.Session{ID: sess, StartedAt: clock.Now(), Parallel: 2}))

		state, code := dispatch.StateFailed, 1
		if i == 1 {
			state, code = dispatch.StateSucceeded, 0
		}
		results := []dispatch.Result{
			{Seq: 0, ID: "016027", Location: "/sims/inp/8.0", State: state, ExitCode: code, Started: clock.Now(), Finished: clock.Now()},
			{Seq: 1, ID: "016037", Location: "/sims/inp/8.0", State: dispatch.StateSucceeded, Started: clock.Now(), Finished: clock.Now()},
		}
		summary := &dispatch.Summary{Session: sess}
		for _, r := range results {
			require.NoError(t, st.RecordExit(ctx, sess, r))
			summary.Dispatched++
			if r.State == dispatch.StateSucceeded {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
		require.NoError(t, st.FinishSession(ctx, summary, clock.Now()))
	}
	return path
}

func executeStatus(t *testing.T, args ...string) (StatusResult, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return StatusResult{}, err
	}

	var resp struct {
		Data StatusResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return resp.Data, nil
}

func TestStatus_LatestSession(t *testing.T) {
	path := seedLedger(t)

	r, err := executeStatus(t, "--ledger", path)
	require.NoError(t, err)
	require.NotNil(t, r.Session)
	assert.Equal(t, "session-b", r.Session.ID)
	assert.Equal(t, 2, r.Session.Succeeded)
	require.Len(t, r.Runs, 2)
	assert.Equal(t, dispatch.StateSucceeded, r.Runs[0].State)
}

func TestStatus_SelectSessionAndState(t *testing.T) {
	path := seedLedger(t)

	r, err := executeStatus(t, "--ledger", path, "--session", "session-a", "--state", "failed")
	require.NoError(t, err)
	assert.Equal(t, "session-a", r.Session.ID)
	require.Len(t, r.Runs, 1)
	assert.Equal(t, "016027", string(r.Runs[0].ID))
	assert.Equal(t, 1, r.Runs[0].ExitCode)
}

func TestStatus_OneIdentifierAcrossSessions(t *testing.T) {
	path := seedLedger(t)

	r, err := executeStatus(t, "--ledger", path, "--id", "016027")
	require.NoError(t, err)
	assert.Nil(t, r.Session)
	require.Len(t, r.Runs, 2)
	assert.Equal(t, "session-a", r.Runs[0].Session)
	assert.Equal(t, dispatch.StateFailed, r.Runs[0].State)
	assert.Equal(t, "session-b", r.Runs[1].Session)
	assert.Equal(t, dispatch.StateSucceeded, r.Runs[1].State)
}

func TestStatus_Errors(t *testing.T) {
	path := seedLedger(t)

	_, err := executeStatus(t, "--ledger", path, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")

	_, err = executeStatus(t, "--ledger", path, "--state", "exploded")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeStatus(t, "--ledger", filepath.Join(t.TempDir(), "empty.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sessions")
}

func TestStatus_Text(t *testing.T) {
	path := seedLedger(t)

	out := &bytes.Buffer{}
	cmd := NewStatusCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--ledger", path})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "Session session-b")
	assert.Contains(t, text, "016037")
	assert.Contains(t, text, "2 runs")
}
