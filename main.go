package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// version is the application version, set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "srcstat [PATH | GIT_URL]",
	Short: "srcstat lists a source tree and counts C++ source files and lines.",
	Long: `srcstat walks a directory tree, prints every visible subdirectory and
every file whose name contains .cpp, .hpp or .h, and reports how many such
files there are and how many lines they hold. With no argument it scans the
current directory.`,
	Version:      version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		return execute(cfg, target, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/srcstat/config.toml)")

	// Filtering
	rootCmd.Flags().StringSliceP("exclude", "e", defaultExcludes, "Exact paths to skip; a leading ./ is relative to the scan root (replaces the defaults)")
	viper.BindPFlag("exclude", rootCmd.Flags().Lookup("exclude"))
	rootCmd.Flags().StringSliceP("pattern", "m", defaultPatterns, "Substrings a file name must contain to be counted")
	viper.BindPFlag("patterns", rootCmd.Flags().Lookup("pattern"))
	rootCmd.Flags().BoolP("hidden", "H", false, "Descend into directories whose name starts with '.'")
	viper.BindPFlag("hidden", rootCmd.Flags().Lookup("hidden"))
	rootCmd.Flags().Bool("gitignore", false, "Respect the .gitignore at the scan root")
	viper.BindPFlag("gitignore", rootCmd.Flags().Lookup("gitignore"))
	rootCmd.Flags().String("on-error", string(FailFast), "On unreadable paths: fail (abort) or skip (warn and continue)")
	viper.BindPFlag("on_error", rootCmd.Flags().Lookup("on-error"))

	// Output
	rootCmd.Flags().StringP("output", "o", formatText, "Output format: text or yaml")
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	rootCmd.Flags().StringP("file", "f", "", "Save output to specified file")
	viper.BindPFlag("file", rootCmd.Flags().Lookup("file"))
	rootCmd.Flags().BoolP("clipboard", "c", false, "Copy output to clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().String("pdf", "", "Save output as PDF")
	viper.BindPFlag("pdf", rootCmd.Flags().Lookup("pdf"))

	// Token Counting
	rootCmd.Flags().Bool("tokens", false, "Also count tokens of matched files")
	viper.BindPFlag("tokens", rootCmd.Flags().Lookup("tokens"))
	rootCmd.Flags().String("model", "", "Model name for the tokenizer (default gpt-4o)")
	viper.BindPFlag("model", rootCmd.Flags().Lookup("model"))

	// Misc
	rootCmd.Flags().Bool("interactive", false, "Pick the directory to scan with a fuzzy finder")
	viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))
	rootCmd.Flags().BoolP("verbose", "v", false, "Log debug information to stderr")
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// execute resolves target to a local directory and scans it.
func execute(cfg Config, target string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose)

	if cfg.Interactive {
		picked, err := runInteractiveFinder()
		if err != nil {
			return fmt.Errorf("interactive mode error: %w", err)
		}
		if picked == "" {
			fmt.Fprintln(stderr, "Interactive selection aborted.")
			return nil
		}
		target = picked
	}

	dir, display := target, target
	if isGitURL(target) {
		tempDir, err := cloneGitRepo(target, stderr, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Debug("removing clone", "dir", tempDir)
			_ = os.RemoveAll(tempDir)
		}()
		dir, display = tempDir, "."
	}

	var tk Tokenizer
	if cfg.Tokens {
		var err error
		tk, err = loadTiktoken(cfg.Model, logger)
		if err != nil {
			return fmt.Errorf("error initializing tokenizer: %w", err)
		}
	}

	_, err := scanTree(osfs.New(dir), display, cfg, tk, stdout, stderr, logger)
	return err
}

// scanTree runs one scan of fsys and delivers the report. Text output to
// stdout is streamed, so a fatal error leaves the partial listing printed.
func scanTree(fsys billy.Filesystem, display string, cfg Config, tk Tokenizer, stdout, stderr io.Writer, logger *slog.Logger) (*Report, error) {
	scanner := NewScanner(fsys, cfg.Scan, logger)
	if tk != nil {
		scanner.WithTokenizer(tk)
	}

	streaming := cfg.Dest.streams(cfg.Format)
	if streaming {
		scanner.OnEntry(linePrinter(stdout))
	}

	report, scanErr := scanner.Scan(display)
	if scanErr != nil && cfg.Scan.OnError != SkipFailed {
		return report, scanErr
	}
	if scanErr != nil {
		logger.Warn("paths failed to process", "count", len(report.Failed))
		logger.Debug("collected errors", "error", scanErr)
	}

	withTokens := tk != nil
	if streaming {
		printSummary(stdout, report.Summary, withTokens)
		return report, nil
	}

	if cfg.Dest.PDF != "" {
		if err := generatePDF(report, withTokens, cfg.Dest.PDF); err != nil {
			return report, err
		}
		fmt.Fprintf(stderr, "Successfully saved PDF to %s\n", cfg.Dest.PDF)
		if cfg.Dest.File == "" && !cfg.Dest.Clipboard {
			return report, nil
		}
	}

	output, err := render(report, cfg.Format, withTokens)
	if err != nil {
		return report, err
	}
	return report, deliver(cfg.Dest, output, stdout, stderr)
}
