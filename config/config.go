// Package config loads settings from defaults, an optional config file,
// RUMMIKUB_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/domino14/rummikub/rules"
)

const (
	ConfigNumbers         = "numbers"
	ConfigRepeats         = "repeats"
	ConfigColours         = "colours"
	ConfigJokers          = "jokers"
	ConfigMinLen          = "min-len"
	ConfigMinInitialValue = "min-initial-value"

	ConfigDataPath        = "data-path"
	ConfigHistoryFile     = "history-file"
	ConfigDebug           = "debug"
	ConfigConfigFile      = "config"
	ConfigSolverMaxNodes  = "solver-max-nodes"
	ConfigSolverMaxTime   = "solver-max-time"
	ConfigSolverAttempts  = "solver-attempts"
	ConfigSolverTolerance = "solver-tolerance"
)

type Config struct {
	*viper.Viper
}

func defaultDataPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "rummikub")
	}
	return filepath.Join(dir, "rummikub")
}

// Load parses args and merges every configuration source. Positional
// arguments are left in Args.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	dp := rules.DefaultParams()
	dataPath := defaultDataPath()

	fs := pflag.NewFlagSet("rummikub", pflag.ContinueOnError)
	fs.Int(ConfigNumbers, dp.Numbers, "number of tiles per colour")
	fs.Int(ConfigRepeats, dp.Repeats, "copies of each numbered tile")
	fs.Int(ConfigColours, dp.Colours, "number of tile colours")
	fs.Int(ConfigJokers, dp.Jokers, "number of jokers")
	fs.Int(ConfigMinLen, dp.MinLen, "minimum number of tiles in a set")
	fs.Int(ConfigMinInitialValue, dp.MinInitialValue, "minimum value of the initial meld")
	fs.String(ConfigDataPath, dataPath, "directory holding the game database")
	fs.String(ConfigHistoryFile, filepath.Join(dataPath, "history"), "readline history file")
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigConfigFile, "", "YAML config file")
	fs.Int(ConfigSolverMaxNodes, 20000, "branch and bound node limit of the first solver attempt")
	fs.Duration(ConfigSolverMaxTime, 5*time.Second, "wall time budget of the first solver attempt")
	fs.Int(ConfigSolverAttempts, 3, "solver attempts before giving up on a backend failure")
	fs.Float64(ConfigSolverTolerance, 1e-9, "numeric tolerance of the simplex method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.Set("args", fs.Args())

	c.SetEnvPrefix("rummikub")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if file := c.GetString(ConfigConfigFile); file != "" {
		c.SetConfigFile(file)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading %s: %w", file, err)
			}
		}
	}
	return nil
}

// Args returns the positional command line arguments.
func (c *Config) Args() []string {
	return c.GetStringSlice("args")
}

// Ruleset builds the ruleset from the configured parameters.
func (c *Config) Ruleset() (*rules.Ruleset, error) {
	return rules.New(rules.Params{
		Numbers:         c.GetInt(ConfigNumbers),
		Repeats:         c.GetInt(ConfigRepeats),
		Colours:         c.GetInt(ConfigColours),
		Jokers:          c.GetInt(ConfigJokers),
		MinLen:          c.GetInt(ConfigMinLen),
		MinInitialValue: c.GetInt(ConfigMinInitialValue),
	})
}

// SanitizedSettings returns the settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	delete(settings, "args")
	return settings
}
