package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd(t *testing.T) *cobra.Command {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := &cobra.Command{Use: "extract"}
	AddStringFlag(cmd, "output", "", "output.jsonl", "output file", false)
	AddStringFlag(cmd, "repo_list", "", "None", "allow-list", false)
	AddBoolFlag(cmd, "single_place_commit", "", false, "single-place mode")
	AddIntFlag(cmd, "depth", "", 0, "clone depth")
	AddDurationFlag(cmd, "interval", "", 0, "clone pacing")
	return cmd
}

func TestNewViper_Defaults(t *testing.T) {
	v, err := NewViper(newCmd(t), "")
	require.NoError(t, err)

	assert.Equal(t, "output.jsonl", v.GetString("output"))
	assert.Equal(t, "None", v.GetString("repo_list"))
	assert.False(t, v.GetBool("single_place_commit"))
	assert.Equal(t, 0, v.GetInt("depth"))
}

func TestNewViper_FlagBeatsEnv(t *testing.T) {
	t.Setenv("HARVEST_OUTPUT", "env.jsonl")
	t.Setenv("HARVEST_SINGLE_PLACE_COMMIT", "true")

	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Set("output", "flag.jsonl"))

	v, err := NewViper(cmd, "")
	require.NoError(t, err)

	assert.Equal(t, "flag.jsonl", v.GetString("output"))
	assert.True(t, v.GetBool("single_place_commit"))
}

func TestNewViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repo_list: repos.txt\ndepth: 5\n"), 0600))

	v, err := NewViper(newCmd(t), path)
	require.NoError(t, err)

	assert.Equal(t, "repos.txt", v.GetString("repo_list"))
	assert.Equal(t, 5, v.GetInt("depth"))
}

func TestNewViper_MissingConfigFile(t *testing.T) {
	_, err := NewViper(newCmd(t), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewViper_DurationFromEnv(t *testing.T) {
	t.Setenv("HARVEST_INTERVAL", "2s")

	v, err := NewViper(newCmd(t), "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, v.GetDuration("interval"))
}

func TestNewViper_DefaultConfigFile(t *testing.T) {
	cmd := newCmd(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "harvest")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harvest.yaml"), []byte("output: from-xdg.jsonl\n"), 0600))

	v, err := NewViper(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, "from-xdg.jsonl", v.GetString("output"))
}
