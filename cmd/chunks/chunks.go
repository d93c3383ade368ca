// cmd/chunks/chunks.go

package chunks

import (
	"runtime"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/chunks"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	harvestcli "github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ChunksCmd mines statement-level change chunks from an extraction output file.
var ChunksCmd = &cobra.Command{
	Use:   "chunks INPUT OUTPUT",
	Short: "Mine small code changes from extracted C# revisions",
	Long: `Mine statement-level change chunks from the records harvest extract wrote
to INPUT, and write them to OUTPUT as newline-delimited JSON.

Both sides of each revision are parsed as C# and canonicalized: literals become
LITERAL, declared variables become VAR0, VAR1 and so on, and comments, using
directives and attributes are dropped. A chunk is a changed run of at most five
lines with the same line count on both sides, made only of declaration and
expression statements, with two untouched lines of context around it.

A line of INPUT that cannot be decoded or parsed is logged and skipped.

Examples:
  harvest chunks output.jsonl chunks.jsonl
  harvest chunks output.jsonl chunks.jsonl --workers 2`,

	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(2)(cmd, args); err != nil {
			return harvest_err.NewExpectedError(err)
		}
		return nil
	},
	RunE: harvestcli.Wrap(runChunks),
}

func init() {
	cli.AddIntFlag(ChunksCmd, config.KeyWorkers, "", runtime.NumCPU(), "Revisions mined in parallel")
	cli.AddStringFlag(ChunksCmd, config.KeyConfig, "", "", "Optional config file (yaml, json or toml)", false)
}

func runChunks(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	configFile, _ := cmd.Flags().GetString(config.KeyConfig)
	v, err := cli.NewViper(cmd, configFile)
	if err != nil {
		return cerr.Wrap(err, "load settings")
	}

	cfg, err := config.LoadChunks(v, args[0], args[1])
	if err != nil {
		return err
	}

	logger.Info("Mining chunks",
		zap.String("input", cfg.Input),
		zap.String("output", cfg.Output),
		zap.Int("workers", cfg.Workers))

	sum, err := chunks.NewRunnerFromConfig(cfg).Run(rc.Ctx)
	if err != nil {
		if rc.Ctx.Err() != nil {
			return harvest_err.NewUserCancelledError("chunks")
		}
		return err
	}

	if sum.Skipped > 0 {
		logger.Warn("Some revisions could not be mined",
			zap.Int("skipped", sum.Skipped),
			zap.Int("revisions", sum.Revisions))
	}
	logger.Info("Wrote chunks",
		zap.Int("chunks", sum.Chunks),
		zap.String("output", cfg.Output))
	return nil
}
