// Package cmd implements the keepbrief CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/logging"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagDir     string
	flagNoColor bool
	flagNow     string
)

var rootCmd = &cobra.Command{
	Use:   "keepbrief",
	Short: "Turn Google Keep notes into a ranked priority brief",
	Long: `keepbrief reads a Google Keep Takeout export, extracts actionable tasks,
scores them by urgency, impact and staleness, groups duplicates, flags
neglected life domains and delivers a short brief.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		output.ConfigureColor(flagNoColor)
	},
}

func init() {
	cobra.OnInitialize(initEnv)
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to the keepbrief config directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "reference date for scoring (YYYY-MM-DD or RFC3339)")
	rootCmd.PersistentFlags().String("log-level", "", "log level ("+strings.Join(logging.ValidLevels(), ", ")+")")
	rootCmd.PersistentFlags().String("out", "", "output directory for logs and run archive")

	_ = viper.BindPFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(keyOut, rootCmd.PersistentFlags().Lookup("out"))
}

// normalizeFlagName accepts --log_level for --log-level, matching the
// config key spelling.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// Handle SilentError: exit with code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	if outputFormat() == output.FormatJSON {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error: wrap as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// defaultHomeDir returns the path to ~/.config/keepbrief.
func defaultHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "keepbrief"), nil
}

// resolveDir returns the config directory: --dir, then the nearest
// .keepbrief directory above the working directory, then ~/.config/keepbrief.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	dir, err := config.FindDir(cwd)
	if err == nil {
		return dir, nil
	}

	return defaultHomeDir()
}

// loadConfig loads the pipeline config. Without a config file the defaults
// are used, so the pipeline runs unconfigured.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}

	cfg = config.NewDefault()
	cfg.SetDir(dir)
	return cfg, nil
}

// loadExistingConfig is loadConfig for commands that modify the file.
func loadExistingConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		return nil, clierr.New(clierr.ConfigNotFound, err.Error()).
			WithDetails(map[string]any{"dir": dir})
	}
	return cfg, err
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// referenceTime returns the scoring clock: --now when given, else the
// current time.
func referenceTime() (time.Time, error) {
	if flagNow == "" {
		return time.Now(), nil
	}
	d, err := date.Parse(flagNow)
	if err != nil {
		return time.Time{}, clierr.Newf(clierr.InvalidInput, "invalid --now %q: %v", flagNow, err)
	}
	return d.Time, nil
}

// newLogger opens the run log in the output directory.
func newLogger() (*logging.Logger, error) {
	level := logging.ParseLevel(viper.GetString(keyLogLevel))
	return logging.NewLogger(outDir(), level)
}
