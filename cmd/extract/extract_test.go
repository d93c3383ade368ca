package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/harvest/internal/testrepo"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCmd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	reposDir := filepath.Join(root, "repos")

	r := testrepo.New(t, filepath.Join(reposDir, "widgets"))
	r.Write("Foo.cs", "A").Commit("root")
	head := r.Write("Foo.cs", "B").Commit("Change Foo")

	out := filepath.Join(root, "out.jsonl")
	ExtractCmd.SetArgs([]string{reposDir, "--output", out, "--single_place_commit"})
	require.NoError(t, ExtractCmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"widgets|`+head.String()+`|Foo.cs","prev_file":"A","updated_file":"B","message":"Change Foo"}`+"\n",
		string(data))

	t.Run("invalid decode policy", func(t *testing.T) {
		ExtractCmd.SetArgs([]string{reposDir, "--output", out, "--decode", "strict"})
		err := ExtractCmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Equal(t, 2, harvest_err.GetExitCode(err))
		assert.True(t, strings.Contains(err.Error(), "Decode"))
	})
}

func TestExtractCmd_RequiresReposDir(t *testing.T) {
	err := ExtractCmd.Args(ExtractCmd, nil)
	require.Error(t, err)
	assert.True(t, harvest_err.IsExpectedUserError(err))
	assert.Equal(t, 0, harvest_err.GetExitCode(err))
}
