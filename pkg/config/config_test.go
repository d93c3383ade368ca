package config

import (
	"errors"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyRepoList, NoRepoList)
	v.SetDefault(KeyExtension, DefaultExtension)
	v.SetDefault(KeyDecode, DefaultDecode)
	return v
}

func TestLoadExtract_Defaults(t *testing.T) {
	cfg, err := LoadExtract(extractViper(), "repos")
	require.NoError(t, err)

	assert.Equal(t, "repos", cfg.ReposDir)
	assert.Equal(t, "output.jsonl", cfg.Output)
	assert.Equal(t, ".cs", cfg.Extension)
	assert.Equal(t, "ignore", cfg.Decode)
	assert.False(t, cfg.SinglePlaceCommit)
	assert.False(t, cfg.FailFast)
	assert.False(t, cfg.AllowListEnabled())
}

func TestLoadExtract_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		dir   string
	}{
		{"missing_repos_dir", KeyOutput, DefaultOutput, ""},
		{"empty_output", KeyOutput, "", "repos"},
		{"extension_without_dot", KeyExtension, "cs", "repos"},
		{"unknown_decode", KeyDecode, "strict", "repos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := extractViper()
			v.Set(tt.key, tt.value)

			_, err := LoadExtract(v, tt.dir)
			require.Error(t, err)

			var classified *harvest_err.ClassifiedError
			require.True(t, errors.As(err, &classified))
			assert.Equal(t, 2, harvest_err.GetExitCode(err))
		})
	}
}

func TestAllowListEnabled(t *testing.T) {
	assert.False(t, (&Extract{RepoList: ""}).AllowListEnabled())
	assert.False(t, (&Extract{RepoList: NoRepoList}).AllowListEnabled())
	assert.True(t, (&Extract{RepoList: "repos.txt"}).AllowListEnabled())
}

func TestLoadClone(t *testing.T) {
	v := viper.New()
	v.Set(KeyInterval, "2s")
	v.Set(KeyDepth, 0)

	cfg, err := LoadClone(v, "repos.tsv", "target")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, "repos.tsv", cfg.RepoListFile)

	v.Set(KeyDepth, -1)
	_, err = LoadClone(v, "repos.tsv", "target")
	assert.Error(t, err)

	_, err = LoadClone(viper.New(), "", "target")
	assert.Error(t, err)
}

func TestLoadChunks(t *testing.T) {
	v := viper.New()
	v.Set(KeyWorkers, 4)

	cfg, err := LoadChunks(v, "output.jsonl", "chunks.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "chunks.jsonl", cfg.Output)

	_, err = LoadChunks(v, "output.jsonl", "output.jsonl")
	assert.Error(t, err, "output must not overwrite the input")

	v.Set(KeyWorkers, 0)
	_, err = LoadChunks(v, "output.jsonl", "chunks.jsonl")
	assert.Equal(t, 2, harvest_err.GetExitCode(err))
}
