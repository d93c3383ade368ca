// pkg/cli/cli.go
//
// Flag helpers shared by harvest commands. Flags are declared on cobra and
// resolved through viper so that HARVEST_* environment variables and an
// optional config file can supply the same settings.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. HARVEST_OUTPUT.
const EnvPrefix = "HARVEST"

// AddStringFlag adds a string flag and optionally marks as required.
// Env/Config are handled by Viper if you call BindFlagsToViper.
func AddStringFlag(cmd *cobra.Command, name, shorthand, def, help string, required bool) {
	cmd.Flags().StringP(name, shorthand, def, help)
	if required {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to mark flag %s as required: %v\n", name, err)
		}
	}
}

// AddBoolFlag adds a boolean flag.
func AddBoolFlag(cmd *cobra.Command, name, shorthand string, def bool, help string) {
	cmd.Flags().BoolP(name, shorthand, def, help)
}

// AddIntFlag adds an int flag.
func AddIntFlag(cmd *cobra.Command, name, shorthand string, def int, help string) {
	cmd.Flags().IntP(name, shorthand, def, help)
}

// AddDurationFlag adds a duration flag.
func AddDurationFlag(cmd *cobra.Command, name, shorthand string, def time.Duration, help string) {
	cmd.Flags().DurationP(name, shorthand, def, help)
}

// BindFlagsToViper binds all flags on a command to a Viper instance.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

// SetViperEnvPrefix lets Viper read env with prefix.
func SetViperEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// DefaultConfigFile returns $XDG_CONFIG_HOME/harvest/harvest.yaml when it
// exists, and "" otherwise.
func DefaultConfigFile() string {
	path := xdg.ConfigPath("harvest", "harvest.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// NewViper returns a Viper bound to the command's flags, HARVEST_* env vars and
// a config file: configFile when non-empty, DefaultConfigFile otherwise.
func NewViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetViperEnvPrefix(v, EnvPrefix)

	if err := BindFlagsToViper(cmd, v); err != nil {
		return nil, err
	}

	if configFile == "" {
		configFile = DefaultConfigFile()
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	return v, nil
}
