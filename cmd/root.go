/* cmd/root.go */

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	harvest "github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_cli"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_io"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Subcommands
	"github.com/CodeMonkeyCybersecurity/harvest/cmd/chunks"
	"github.com/CodeMonkeyCybersecurity/harvest/cmd/clone"
	"github.com/CodeMonkeyCybersecurity/harvest/cmd/extract"
)

// RootCmd is the base command for harvest.
var RootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Mine single-file code revisions from git history",
	Long: `harvest builds a dataset of before/after file revisions from a corpus of
cloned repositories.

  harvest clone REPO_LIST_FILE TARGET_DIR   # populate a repositories directory
  harvest extract REPOS_DIR                 # write one JSON line per qualifying change`,
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: harvest.Wrap(func(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stderr, "No subcommand provided. Try `harvest help`.")
		return cmd.Help()
	}),
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help",
	Short: "Help about any command",
	Long:  "Displays help for harvest or a specific subcommand.",
	RunE: harvest.Wrap(func(rc *harvest_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return harvest_err.NewExpectedError(fmt.Errorf("command not found: %s", strings.Join(args, " ")))
		}
		return c.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)

	for _, subCmd := range []*cobra.Command{
		extract.ExtractCmd,
		clone.CloneCmd,
		chunks.ChunksCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command, then exits with the code
// that matches the outcome.
func Execute() {
	// A missing .env is fine.
	_ = godotenv.Load()

	logger.Initialize()
	defer logger.Sync()

	shutdown, err := telemetry.Init("harvest")
	if err != nil {
		logger.L().Warn("Telemetry disabled", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	RegisterCommands()
	err = RootCmd.ExecuteContext(ctx)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := shutdown(flushCtx); shutdownErr != nil {
		logger.L().Warn("Failed to flush telemetry", zap.Error(shutdownErr))
	}
	cancel()

	if err == nil {
		return
	}

	code := harvest_err.GetExitCode(err)
	if code == 0 {
		harvest_err.PrintError("harvest", err)
	} else {
		logger.L().Error("CLI execution error", zap.Error(err), zap.Int("exit_code", code))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	logger.Sync()
	os.Exit(code)
}
