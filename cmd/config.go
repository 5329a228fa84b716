package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify the pipeline configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func intSetter(key string, field func(*config.Config) *int) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return clierr.Newf(clierr.InvalidInput, "invalid %s %q: must be an integer", key, v)
		}
		*field(c) = n
		return nil // validation handles range check
	}
}

func boolSetter(key string, field func(*config.Config) *bool) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return clierr.Newf(clierr.InvalidInput, "invalid %s %q: must be true or false", key, v)
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(key string, field func(*config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return clierr.Newf(clierr.InvalidInput, "invalid %s %q: %v", key, v, err)
		}
		*field(c) = v
		return nil
	}
}

func configAccessors() map[string]configAccessor {
	accessors := baseConfigAccessors()
	addServiceConfigAccessors(accessors)
	return accessors
}

func baseConfigAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"domains": {
			get: func(c *config.Config) any { return c.Domains },
		},
		"default_weight": {
			get:      func(c *config.Config) any { return c.DefaultWeight },
			set:      intSetter("default_weight", func(c *config.Config) *int { return &c.DefaultWeight }),
			writable: true,
		},
		"strict_domains": {
			get:      func(c *config.Config) any { return c.StrictDomains },
			set:      boolSetter("strict_domains", func(c *config.Config) *bool { return &c.StrictDomains }),
			writable: true,
		},
		"urgency.max": {
			get:      func(c *config.Config) any { return c.Urgency.Max },
			set:      intSetter("urgency.max", func(c *config.Config) *int { return &c.Urgency.Max }),
			writable: true,
		},
		"urgency.tiers": {
			get: func(c *config.Config) any { return c.Urgency.Tiers },
		},
		"urgency.deadline_bonus": {
			get: func(c *config.Config) any { return c.Urgency.DeadlineBonus },
		},
		"staleness.max": {
			get:      func(c *config.Config) any { return c.Staleness.Max },
			set:      intSetter("staleness.max", func(c *config.Config) *int { return &c.Staleness.Max }),
			writable: true,
		},
		"staleness.saturation_days": {
			get: func(c *config.Config) any { return c.Staleness.SaturationDays },
			set: intSetter("staleness.saturation_days",
				func(c *config.Config) *int { return &c.Staleness.SaturationDays }),
			writable: true,
		},
		"duplicates.similarity": {
			get: func(c *config.Config) any { return c.Duplicates.Similarity },
			set: func(c *config.Config, v string) error {
				if v != config.SimilarityToken && v != config.SimilarityEdit {
					return clierr.Newf(clierr.InvalidInput,
						"invalid duplicates.similarity %q; allowed: %s, %s", v, config.SimilarityToken, config.SimilarityEdit)
				}
				c.Duplicates.Similarity = v
				return nil
			},
			writable: true,
		},
		"duplicates.threshold": {
			get: func(c *config.Config) any { return c.Duplicates.Threshold },
			set: func(c *config.Config, v string) error {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid duplicates.threshold %q: must be a number", v)
				}
				c.Duplicates.Threshold = f
				return nil
			},
			writable: true,
		},
		"brief.top_n": {
			get:      func(c *config.Config) any { return c.Brief.TopN },
			set:      intSetter("brief.top_n", func(c *config.Config) *int { return &c.Brief.TopN }),
			writable: true,
		},
		"brief.vague_preview": {
			get:      func(c *config.Config) any { return c.Brief.VaguePreview },
			set:      intSetter("brief.vague_preview", func(c *config.Config) *int { return &c.Brief.VaguePreview }),
			writable: true,
		},
	}
}

func addServiceConfigAccessors(accessors map[string]configAccessor) {
	accessors["notes.chunk_size"] = configAccessor{
		get:      func(c *config.Config) any { return c.Notes.ChunkSize },
		set:      intSetter("notes.chunk_size", func(c *config.Config) *int { return &c.Notes.ChunkSize }),
		writable: true,
	}
	accessors["notes.exclude_labels"] = configAccessor{
		get: func(c *config.Config) any { return c.Notes.ExcludeLabels },
		set: func(c *config.Config, v string) error {
			c.Notes.ExcludeLabels = nil
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					c.Notes.ExcludeLabels = append(c.Notes.ExcludeLabels, p)
				}
			}
			return nil
		},
		writable: true,
	}
	accessors["notes.include_archived"] = configAccessor{
		get:      func(c *config.Config) any { return c.Notes.IncludeArchived },
		set:      boolSetter("notes.include_archived", func(c *config.Config) *bool { return &c.Notes.IncludeArchived }),
		writable: true,
	}
	accessors["extractor.model"] = configAccessor{
		get:      func(c *config.Config) any { return c.Extractor.Model },
		set:      func(c *config.Config, v string) error { c.Extractor.Model = v; return nil },
		writable: true,
	}
	accessors["extractor.concurrency"] = configAccessor{
		get:      func(c *config.Config) any { return c.Extractor.Concurrency },
		set:      intSetter("extractor.concurrency", func(c *config.Config) *int { return &c.Extractor.Concurrency }),
		writable: true,
	}
	accessors["extractor.max_tokens"] = configAccessor{
		get:      func(c *config.Config) any { return c.Extractor.MaxTokens },
		set:      intSetter("extractor.max_tokens", func(c *config.Config) *int { return &c.Extractor.MaxTokens }),
		writable: true,
	}
	accessors["extractor.timeout"] = configAccessor{
		get:      func(c *config.Config) any { return c.Extractor.Timeout },
		set:      durationSetter("extractor.timeout", func(c *config.Config) *string { return &c.Extractor.Timeout }),
		writable: true,
	}
	accessors["notify.max_length"] = configAccessor{
		get:      func(c *config.Config) any { return c.Notify.MaxLength },
		set:      intSetter("notify.max_length", func(c *config.Config) *int { return &c.Notify.MaxLength }),
		writable: true,
	}
	accessors["notify.parse_mode"] = configAccessor{
		get:      func(c *config.Config) any { return c.Notify.ParseMode },
		set:      func(c *config.Config, v string) error { c.Notify.ParseMode = v; return nil },
		writable: true,
	}
	accessors["notify.timeout"] = configAccessor{
		get:      func(c *config.Config) any { return c.Notify.Timeout },
		set:      durationSetter("notify.timeout", func(c *config.Config) *string { return &c.Notify.Timeout }),
		writable: true,
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"domains",
		"default_weight",
		"strict_domains",
		"urgency.max",
		"urgency.tiers",
		"urgency.deadline_bonus",
		"staleness.max",
		"staleness.saturation_days",
		"duplicates.similarity",
		"duplicates.threshold",
		"brief.top_n",
		"brief.vague_preview",
		"notes.chunk_size",
		"notes.exclude_labels",
		"notes.include_archived",
		"extractor.model",
		"extractor.concurrency",
		"extractor.max_tokens",
		"extractor.timeout",
		"notify.max_length",
		"notify.parse_mode",
		"notify.timeout",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-26s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadExistingConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only; edit %s", key, cfg.ConfigPath())
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		if len(v) == 0 {
			return "--"
		}
		return strings.Join(v, ", ")
	case []config.DomainConfig:
		parts := make([]string, len(v))
		for i, d := range v {
			parts[i] = fmt.Sprintf("%s(w%d,min%d)", d.Name, d.Weight, d.MinTasks)
		}
		return strings.Join(parts, ", ")
	case []config.KeywordTier:
		parts := make([]string, len(v))
		for i, t := range v {
			parts[i] = fmt.Sprintf("%d:%d keywords", t.Score, len(t.Keywords))
		}
		return strings.Join(parts, ", ")
	case []config.DeadlineBonus:
		parts := make([]string, len(v))
		for i, b := range v {
			parts[i] = fmt.Sprintf("<=%dd:+%d", b.WithinDays, b.Bonus)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
