package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lguelzow/CoreasSpellcaster/internal/runid"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want runid.ID
	}{
		{
			name: "proton",
			args: []string{"--energy", "10.3", "--zenith", "78", "--azimuth", "100", "--run", "7"},
			want: "036027",
		},
		{
			name: "iron",
			args: []string{"--primary", "5626", "--energy", "8.0", "--zenith", "63", "--azimuth", "0", "--run", "0"},
			want: "110000",
		},
		{
			name: "angles are rounded before lookup",
			args: []string{"--energy", "8.04", "--zenith", "65.094", "--azimuth", "44.996", "--run", "1"},
			want: "010011",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cmd := NewEncodeCommand(&RootOptions{Format: "json"})
			cmd.SetOut(out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())

			var resp struct {
				Data EncodeResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Data.ID)
		})
	}
}

func TestEncode_Text(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewEncodeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--energy", "10.3", "--zenith", "78", "--azimuth", "100", "--run", "7"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "036027  (primary=0 energy=3 zenith=6 azimuth=2 run_index=7)\n", out.String())
}

func TestEncode_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown primary", []string{"--primary", "7", "--energy", "8.0"}},
		{"energy above the tables", []string{"--energy", "13.5"}},
		{"run index too wide", []string{"--energy", "8.0", "--run", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cmd := NewEncodeCommand(&RootOptions{Format: "text"})
			cmd.SetOut(out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.True(t, runid.IsOutOfRange(err))
			assert.Empty(t, out.String())
		})
	}
}
