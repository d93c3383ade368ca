// pkg/config/config.go

package config

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Flag and config keys. The underscore names match the historical extractor flags.
const (
	KeyOutput            = "output"
	KeyRepoList          = "repo_list"
	KeySinglePlaceCommit = "single_place_commit"
	KeyExtension         = "extension"
	KeyDecode            = "decode"
	KeyFailFast          = "fail-fast"
	KeyConfig            = "config"
	KeyInterval          = "interval"
	KeyDepth             = "depth"
	KeyWorkers           = "workers"
)

// NoRepoList is the sentinel value that disables the allow-list.
const NoRepoList = "None"

// Defaults for the extract command.
const (
	DefaultOutput    = "output.jsonl"
	DefaultExtension = ".cs"
	DefaultDecode    = "ignore"
)

// Extract holds the settings of one extraction run.
type Extract struct {
	ReposDir          string `validate:"required"`
	Output            string `validate:"required"`
	RepoList          string
	SinglePlaceCommit bool
	Extension         string `validate:"required,startswith=."`
	Decode            string `validate:"oneof=ignore replace"`
	FailFast          bool
}

// AllowListEnabled reports whether RepoList names a file.
func (c *Extract) AllowListEnabled() bool {
	return c.RepoList != "" && c.RepoList != NoRepoList
}

// Clone holds the settings of one bulk clone run.
type Clone struct {
	RepoListFile string        `validate:"required"`
	TargetDir    string        `validate:"required"`
	Interval     time.Duration `validate:"gte=0"`
	Depth        int           `validate:"gte=0"`
}

// Chunks holds the settings of one chunk mining run.
type Chunks struct {
	Input   string `validate:"required"`
	Output  string `validate:"required,nefield=Input"`
	Workers int    `validate:"gte=1"`
}

// LoadExtract resolves extract settings from v and validates them.
func LoadExtract(v *viper.Viper, reposDir string) (*Extract, error) {
	cfg := &Extract{
		ReposDir:          reposDir,
		Output:            v.GetString(KeyOutput),
		RepoList:          v.GetString(KeyRepoList),
		SinglePlaceCommit: v.GetBool(KeySinglePlaceCommit),
		Extension:         v.GetString(KeyExtension),
		Decode:            v.GetString(KeyDecode),
		FailFast:          v.GetBool(KeyFailFast),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClone resolves clone settings from v and validates them.
func LoadClone(v *viper.Viper, repoListFile, targetDir string) (*Clone, error) {
	cfg := &Clone{
		RepoListFile: repoListFile,
		TargetDir:    targetDir,
		Interval:     v.GetDuration(KeyInterval),
		Depth:        v.GetInt(KeyDepth),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadChunks resolves chunk mining settings from v and validates them.
func LoadChunks(v *viper.Viper, input, output string) (*Chunks, error) {
	cfg := &Chunks{
		Input:   input,
		Output:  output,
		Workers: v.GetInt(KeyWorkers),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg interface{}) error {
	if err := validator.New().Struct(cfg); err != nil {
		return harvest_err.NewValidationError(
			cerr.Wrap(err, "invalid configuration").Error(),
			"Run with --help to see accepted values",
		)
	}
	return nil
}
