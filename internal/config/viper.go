package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SMARTFIX_TIMEOUT.
const EnvPrefix = "SMARTFIX"

// NewViper returns a viper instance configured for SMARTFIX_* environment
// variables and an optional config file.
//
// Search order when configFile is empty:
//   - $HOME/.smartfix/config.(yaml|yml|json|toml|...)
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(home, ".smartfix"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, err
	}

	return v, nil
}

// AddRunFlags registers the tunables shared by the run and plan commands.
// Defaults live on the flags so BindFlags can layer env and file values
// underneath explicit flags.
func AddRunFlags(fs *pflag.FlagSet) {
	fs.String("manifest", DefaultManifestName, "Manifest file name inside the corpus directory")
	fs.String("tool", DefaultTool, "Repair tool to drive")
	fs.String("tool-path", DefaultToolPath, "Path to the repair tool executable")
	fs.String("tool-dir", "", "Working directory for the repair tool (default: current directory)")
	fs.Duration("timeout", DefaultTimeout, "Hard wall-clock limit per task")
	fs.Int("repair-loop-timeout", DefaultRepairLoopTimeout, "Tool hint: repair loop budget in seconds")
	fs.Int("repair-tool-timeout", DefaultRepairToolTimeout, "Tool hint: per sub-tool budget in seconds")
	fs.Int("z3-timeout", DefaultZ3Timeout, "Tool hint: solver timeout in milliseconds")
	fs.String("on-collision", DefaultOnCollision, "Output key collision policy: error or suffix")
	fs.Bool("csv-header", false, "Write a header row to results.csv")
	fs.Bool("keep-log", false, "Keep the harness log file after a successful run")
	fs.Bool("verbose", false, "Log debug records to the console")
}

// BindFlags makes explicit flags win over SMARTFIX_* env values, which win
// over the config file, which wins over flag defaults.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return v.BindPFlags(fs)
}

// FromViper builds a Config from the bound values. Positional arguments are
// filled in by the caller.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Manifest:          strings.TrimSpace(v.GetString("manifest")),
		Tool:              strings.TrimSpace(v.GetString("tool")),
		ToolPath:          strings.TrimSpace(v.GetString("tool-path")),
		ToolDir:           strings.TrimSpace(v.GetString("tool-dir")),
		Timeout:           v.GetDuration("timeout"),
		RepairLoopTimeout: v.GetInt("repair-loop-timeout"),
		RepairToolTimeout: v.GetInt("repair-tool-timeout"),
		Z3Timeout:         v.GetInt("z3-timeout"),
		OnCollision:       strings.TrimSpace(v.GetString("on-collision")),
		CSVHeader:         v.GetBool("csv-header"),
		KeepLog:           v.GetBool("keep-log"),
		Verbose:           v.GetBool("verbose"),
	}
}
