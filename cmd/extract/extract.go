// cmd/extract/extract.go

package extract

import (
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest"
	harvestcli "github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ExtractCmd walks every repository under REPOS_DIR and writes the qualifying
// single-file revisions as newline-delimited JSON.
var ExtractCmd = &cobra.Command{
	Use:   "extract REPOS_DIR",
	Short: "Extract single-file revisions from cloned repositories",
	Long: `Extract before/after file revisions from the history of every repository
under REPOS_DIR.

Only commits with exactly one parent are considered. In multi-place mode every
modified file with the tracked extension yields a record. In single-place mode
a commit yields a record only when its whole diff is one modified tracked file,
and the record carries the commit message.

Every flag can also be set with a HARVEST_ environment variable
(HARVEST_SINGLE_PLACE_COMMIT=true) or in the file given to --config.

Examples:
  harvest extract ./repos                                   # multi-place, output.jsonl
  harvest extract ./repos --single_place_commit             # one-file commits with messages
  harvest extract ./repos --repo_list keep.txt --output out.jsonl
  harvest extract ./repos --decode replace --fail-fast`,

	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return harvest_err.NewExpectedError(err)
		}
		return nil
	},
	RunE: harvestcli.Wrap(runExtract),
}

func init() {
	cli.AddStringFlag(ExtractCmd, config.KeyOutput, "o", config.DefaultOutput, "Output file, truncated at start", false)
	cli.AddStringFlag(ExtractCmd, config.KeyRepoList, "", config.NoRepoList, "File listing the repositories to process, one per line (None processes all)", false)
	cli.AddBoolFlag(ExtractCmd, config.KeySinglePlaceCommit, "", false, "Only collect commits that modify a single tracked file")
	cli.AddStringFlag(ExtractCmd, config.KeyExtension, "", config.DefaultExtension, "Tracked file extension", false)
	cli.AddStringFlag(ExtractCmd, config.KeyDecode, "", config.DefaultDecode, "Handling of invalid UTF-8: ignore or replace", false)
	cli.AddBoolFlag(ExtractCmd, config.KeyFailFast, "", false, "Abort the run when a repository fails during extraction")
	cli.AddStringFlag(ExtractCmd, config.KeyConfig, "", "", "Optional config file (yaml, json or toml)", false)
}

func runExtract(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	configFile, _ := cmd.Flags().GetString(config.KeyConfig)
	v, err := cli.NewViper(cmd, configFile)
	if err != nil {
		return cerr.Wrap(err, "load settings")
	}

	cfg, err := config.LoadExtract(v, args[0])
	if err != nil {
		return err
	}

	opts, err := harvest.OptionsFromConfig(cfg)
	if err != nil {
		return harvest_err.NewValidationError(err.Error(), "Use --decode ignore or --decode replace")
	}
	rc.Attributes["mode"] = opts.Mode.String()

	logger.Info("Starting extraction",
		zap.String("repos_dir", opts.ReposDir),
		zap.String("output", opts.Output),
		zap.String("repo_list", cfg.RepoList),
		zap.String("mode", opts.Mode.String()),
		zap.String("extension", opts.Extension),
		zap.String("decode", string(opts.Decode)),
		zap.Bool("fail_fast", opts.FailFast))

	res, err := harvest.NewDriver(opts).Run(rc.Ctx)
	if err != nil {
		if rc.Ctx.Err() != nil {
			return harvest_err.NewUserCancelledError("extract")
		}
		return err
	}

	if res.Failures != nil {
		logger.Warn("Some repositories were abandoned during extraction",
			zap.Strings("repos", res.Failed),
			zap.Error(res.Failures))
	}
	logger.Info("Wrote records",
		zap.Int("records", res.Records),
		zap.String("output", opts.Output))
	return nil
}
