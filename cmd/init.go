package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default pipeline config",
	Long: `Creates a .keepbrief directory (or --dir) holding config.yml with the
default domain table, scoring tiers and service settings.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringSlice("domains", nil, "comma-separated domain names (name or name:weight:min_tasks)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.ConfigAlreadyExists, "config already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	specs, _ := cmd.Flags().GetStringSlice("domains")
	cfg, err := writeConfig(absDir, specs)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":  "initialized",
			"dir":     absDir,
			"config":  cfg.ConfigPath(),
			"domains": strings.Join(cfg.DomainNames(), ","),
		})
	}

	output.Messagef(os.Stdout, "Initialized keepbrief in %s", absDir)
	output.Messagef(os.Stdout, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Domains: %s", strings.Join(cfg.DomainNames(), ", "))
	output.Messagef(os.Stdout, "  Hint:    Set OPENAI_API_KEY, then run: keepbrief brief PATH/TO/Keep")
	return nil
}

// writeConfig writes the default config, with the domain table replaced
// when specs are given.
func writeConfig(dir string, specs []string) (*config.Config, error) {
	if len(specs) == 0 {
		return config.Init(dir)
	}

	domains, err := parseDomains(specs)
	if err != nil {
		return nil, err
	}
	cfg := config.NewDefault()
	cfg.SetDir(dir)
	cfg.Domains = domains
	if err := cfg.Validate(); err != nil {
		return nil, clierr.New(clierr.InvalidInput, err.Error())
	}

	const dirMode = 0o750
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// parseDomains parses "name" or "name:weight:min_tasks" entries. A bare name
// keeps the default weight and minimum when it is a default domain.
func parseDomains(specs []string) ([]config.DomainConfig, error) {
	defaults := config.NewDefault()
	out := make([]config.DomainConfig, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		d := config.DomainConfig{Name: strings.ToLower(strings.TrimSpace(parts[0])), Weight: config.MaxImpact, MinTasks: 1}
		if known := defaults.DomainByName(d.Name); known != nil {
			d = *known
		}
		switch len(parts) {
		case 1:
		case 3: //nolint:mnd // name:weight:min_tasks
			if _, err := fmt.Sscanf(parts[1]+" "+parts[2], "%d %d", &d.Weight, &d.MinTasks); err != nil {
				return nil, clierr.Newf(clierr.InvalidInput, "invalid domain %q (expected name:weight:min_tasks)", spec)
			}
		default:
			return nil, clierr.Newf(clierr.InvalidInput, "invalid domain %q (expected name:weight:min_tasks)", spec)
		}
		out = append(out, d)
	}
	return out, nil
}
