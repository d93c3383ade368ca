// cmd/clone/clone.go

package clone

import (
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/cli"
	harvestclone "github.com/CodeMonkeyCybersecurity/harvest/pkg/clone"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	harvestcli "github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CloneCmd clones every repository of a tab-separated list into TARGET_DIR.
var CloneCmd = &cobra.Command{
	Use:   "clone REPO_LIST_FILE TARGET_DIR",
	Short: "Clone the repositories of a repository list",
	Long: `Clone every repository named in REPO_LIST_FILE into TARGET_DIR.

REPO_LIST_FILE is tab-separated; the second column is a repository URL without
the .git suffix. Each repository lands in TARGET_DIR/<name>, where name is the
last element of its URL. A failing clone is reported and the run moves on.

A shallow clone (--depth > 0) ends in a commit whose parent is missing.
Walking that history fails, so extract prunes the repository. Keep the
default full history for repositories you mean to extract from.

Examples:
  harvest clone repos.tsv ./repos                  # clone everything, full history
  harvest clone repos.tsv ./repos --interval 2s    # at most one clone start every 2s`,

	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return harvest_err.NewExpectedError(err)
		}
		return nil
	},
	RunE: harvestcli.Wrap(runClone),
}

func init() {
	cli.AddDurationFlag(CloneCmd, config.KeyInterval, "", 0, "Minimum delay between clone starts")
	cli.AddIntFlag(CloneCmd, config.KeyDepth, "", 0, "Clone depth; 0 clones full history, and extract prunes shallow clones")
	cli.AddStringFlag(CloneCmd, config.KeyConfig, "", "", "Optional config file (yaml, json or toml)", false)
}

func runClone(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	configFile, _ := cmd.Flags().GetString(config.KeyConfig)
	v, err := cli.NewViper(cmd, configFile)
	if err != nil {
		return cerr.Wrap(err, "load settings")
	}

	cfg, err := config.LoadClone(v, args[0], args[1])
	if err != nil {
		return err
	}

	if cfg.Depth > 0 {
		logger.Warn("Shallow clones cannot be extracted from; extract will prune them",
			zap.Int("depth", cfg.Depth))
	}

	entries, err := harvestclone.ReadRepoList(rc.Ctx, cfg.RepoListFile)
	if err != nil {
		return err
	}
	logger.Info("Cloning repositories",
		zap.Int("count", len(entries)),
		zap.String("target_dir", cfg.TargetDir),
		zap.Duration("interval", cfg.Interval),
		zap.Int("depth", cfg.Depth))

	summary, err := harvestclone.NewClonerFromConfig(cfg).Run(rc.Ctx, entries)
	if err != nil {
		if rc.Ctx.Err() != nil {
			return harvest_err.NewUserCancelledError("clone")
		}
		return err
	}
	if summary.Errors != nil {
		logger.Warn("Some repositories could not be cloned",
			zap.Strings("repos", summary.Failed),
			zap.Error(summary.Errors))
	}
	return nil
}
