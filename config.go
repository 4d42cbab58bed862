package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved configuration of one run:
// default < config file < SRCSTAT_* env < flag.
type Config struct {
	Scan        ScanOptions
	Format      string
	Dest        Destination
	Tokens      bool
	Model       string
	Interactive bool
	Verbose     bool
}

// setDefaults registers the defaults of every config key on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("patterns", defaultPatterns)
	v.SetDefault("exclude", defaultExcludes)
	v.SetDefault("hidden", false)
	v.SetDefault("gitignore", false)
	v.SetDefault("on_error", string(FailFast))
	v.SetDefault("output", formatText)
	v.SetDefault("file", "")
	v.SetDefault("clipboard", false)
	v.SetDefault("pdf", "")
	v.SetDefault("tokens", false)
	v.SetDefault("model", "")
	v.SetDefault("interactive", false)
	v.SetDefault("verbose", false)
}

// loadConfig reads the resolved values out of v.
func loadConfig(v *viper.Viper) (Config, error) {
	policy, err := parseErrorPolicy(v.GetString("on_error"))
	if err != nil {
		return Config{}, err
	}

	format := strings.ToLower(v.GetString("output"))
	if format != formatText && format != formatYAML {
		return Config{}, fmt.Errorf("unsupported output format: %s. Use 'text' or 'yaml'", format)
	}

	patterns := v.GetStringSlice("patterns")
	if len(patterns) == 0 {
		return Config{}, fmt.Errorf("at least one file name pattern is required")
	}

	return Config{
		Scan: ScanOptions{
			Patterns:  patterns,
			Excludes:  v.GetStringSlice("exclude"),
			Hidden:    v.GetBool("hidden"),
			GitIgnore: v.GetBool("gitignore"),
			OnError:   policy,
		},
		Format: format,
		Dest: Destination{
			File:      v.GetString("file"),
			Clipboard: v.GetBool("clipboard"),
			PDF:       v.GetString("pdf"),
		},
		Tokens:      v.GetBool("tokens"),
		Model:       v.GetString("model"),
		Interactive: v.GetBool("interactive"),
		Verbose:     v.GetBool("verbose"),
	}, nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "srcstat"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("SRCSTAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match SRCSTAT_*

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

// newLogger returns the diagnostics logger. The report never goes through it.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
