package chunks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prev = `class Widget
{
    void Run()
    {
        int a = 1;
        int b = 2;
        Log(a);
        Log(b);
        int c = 3;
    }
}
`

func TestChunksCmd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()

	line, err := json.Marshal(map[string]any{
		"id":           "widgets|abc|Widget.cs",
		"prev_file":    prev,
		"updated_file": strings.Replace(prev, "Log(a);", "Log(a + b);", 1),
		"message":      "Log both",
	})
	require.NoError(t, err)

	input := filepath.Join(root, "output.jsonl")
	require.NoError(t, os.WriteFile(input, append(line, '\n'), 0644))
	out := filepath.Join(root, "chunks.jsonl")

	ChunksCmd.SetArgs([]string{input, out, "--workers", "2"})
	require.NoError(t, ChunksCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var chunk map[string]any
	require.NoError(t, json.Unmarshal(data, &chunk))
	assert.Equal(t, "widgets|abc|Widget.cs_0", chunk["Id"])
	assert.Equal(t, "Log ( VAR0 + VAR1 ) ;", chunk["UpdatedCodeChunk"])
	assert.Equal(t, "Log both", chunk["CommitMessage"])

	t.Run("output same as input", func(t *testing.T) {
		ChunksCmd.SetArgs([]string{input, input, "--workers", "1"})
		err := ChunksCmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Equal(t, 2, harvest_err.GetExitCode(err))
	})

	t.Run("no workers", func(t *testing.T) {
		ChunksCmd.SetArgs([]string{input, out, "--workers", "0"})
		err := ChunksCmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Equal(t, 2, harvest_err.GetExitCode(err))
	})
}

func TestChunksCmd_RequiresTwoArguments(t *testing.T) {
	err := ChunksCmd.Args(ChunksCmd, []string{"output.jsonl"})
	require.Error(t, err)
	assert.True(t, harvest_err.IsExpectedUserError(err))
	assert.Equal(t, 0, harvest_err.GetExitCode(err))
}
