package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gobwas/glob"
	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/keepbrief/internal/clierr"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no keepbrief config found (run 'keepbrief init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config is the immutable pipeline configuration handed to every component.
// Components never read configuration from anywhere else.
type Config struct {
	Version       int              `yaml:"version"`
	Domains       []DomainConfig   `yaml:"domains"`
	DefaultWeight int              `yaml:"default_weight"`
	StrictDomains bool             `yaml:"strict_domains,omitempty"`
	Urgency       UrgencyConfig    `yaml:"urgency"`
	Staleness     StalenessConfig  `yaml:"staleness"`
	Duplicates    DuplicatesConfig `yaml:"duplicates"`
	Brief         BriefConfig      `yaml:"brief"`
	Notes         NotesConfig      `yaml:"notes"`
	Extractor     ExtractorConfig  `yaml:"extractor"`
	Notify        NotifyConfig     `yaml:"notify"`

	// dir is the absolute path to the config directory (not serialized).
	dir string `yaml:"-"`
}

// DomainConfig is one row of the domain weight table.
type DomainConfig struct {
	Name     string `yaml:"name" json:"name"`
	Weight   int    `yaml:"weight" json:"weight"`
	MinTasks int    `yaml:"min_tasks" json:"min_tasks"`
}

// KeywordTier scores every keyword in Keywords at Score.
type KeywordTier struct {
	Score    int      `yaml:"score" json:"score"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DeadlineBonus awards Bonus to deadlines at most WithinDays away.
type DeadlineBonus struct {
	WithinDays int `yaml:"within_days" json:"within_days"`
	Bonus      int `yaml:"bonus" json:"bonus"`
}

// UrgencyConfig controls the urgency scorer.
type UrgencyConfig struct {
	Max           int             `yaml:"max"`
	Tiers         []KeywordTier   `yaml:"tiers"`
	DeadlineBonus []DeadlineBonus `yaml:"deadline_bonus"`
}

// StalenessConfig controls the staleness scorer.
type StalenessConfig struct {
	Max            int `yaml:"max"`
	SaturationDays int `yaml:"saturation_days"`
}

// DuplicatesConfig controls the duplicate detector.
type DuplicatesConfig struct {
	Similarity string   `yaml:"similarity"`
	Threshold  float64  `yaml:"threshold"`
	StopWords  []string `yaml:"stop_words,omitempty"`
}

// BriefConfig controls the composed brief.
type BriefConfig struct {
	TopN         int `yaml:"top_n"`
	VaguePreview int `yaml:"vague_preview"`
}

// NotesConfig controls how the note export is read.
type NotesConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ExcludeLabels   []string `yaml:"exclude_labels,omitempty"`
	IncludeArchived bool     `yaml:"include_archived,omitempty"`
}

// ExtractorConfig controls calls to the extraction service.
type ExtractorConfig struct {
	Model       string  `yaml:"model"`
	Concurrency int     `yaml:"concurrency"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// NotifyConfig controls brief delivery.
type NotifyConfig struct {
	MaxLength int    `yaml:"max_length"`
	ParseMode string `yaml:"parse_mode"`
	Timeout   string `yaml:"timeout"`
}

// NewDefault creates a Config with default values. The pipeline runs on
// this config when no file exists.
func NewDefault() *Config {
	return &Config{
		Version:       CurrentVersion,
		Domains:       append([]DomainConfig{}, DefaultDomains...),
		DefaultWeight: DefaultWeight,
		Urgency: UrgencyConfig{
			Max:           MaxUrgency,
			Tiers:         cloneTiers(DefaultTiers),
			DeadlineBonus: append([]DeadlineBonus{}, DefaultDeadlineBonus...),
		},
		Staleness: StalenessConfig{
			Max:            MaxStaleness,
			SaturationDays: DefaultSaturationDays,
		},
		Duplicates: DuplicatesConfig{
			Similarity: DefaultSimilarity,
			Threshold:  DefaultSimilarityThreshold,
			StopWords:  append([]string{}, DefaultStopWords...),
		},
		Brief: BriefConfig{
			TopN:         DefaultTopN,
			VaguePreview: DefaultVaguePreview,
		},
		Notes: NotesConfig{
			ChunkSize: DefaultChunkSize,
		},
		Extractor: ExtractorConfig{
			Model:       DefaultModel,
			Concurrency: DefaultConcurrency,
			MaxTokens:   DefaultMaxTokens,
			Temperature: 0.1, //nolint:mnd // low temperature for stable classification
			Timeout:     DefaultExtractorTimeout,
		},
		Notify: NotifyConfig{
			MaxLength: DefaultNotifyMaxLength,
			ParseMode: DefaultParseMode,
			Timeout:   DefaultNotifyTimeout,
		},
	}
}

func cloneTiers(tiers []KeywordTier) []KeywordTier {
	out := make([]KeywordTier, len(tiers))
	for i, t := range tiers {
		out[i] = KeywordTier{Score: t.Score, Keywords: append([]string{}, t.Keywords...)}
	}
	return out
}

// Dir returns the absolute path to the config directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the config directory path.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// DomainNames returns the configured domain names in table order.
func (c *Config) DomainNames() []string {
	names := make([]string, len(c.Domains))
	for i, d := range c.Domains {
		names[i] = d.Name
	}
	return names
}

// DomainByName returns the DomainConfig for the given name, or nil if not found.
func (c *Config) DomainByName(name string) *DomainConfig {
	for i := range c.Domains {
		if c.Domains[i].Name == name {
			return &c.Domains[i]
		}
	}
	return nil
}

// IsKnownDomain reports whether name is a configured domain or Uncategorized.
func (c *Config) IsKnownDomain(name string) bool {
	return name == Uncategorized || c.DomainByName(name) != nil
}

// ExtractorTimeout parses extractor.timeout, falling back to the default.
func (c *Config) ExtractorTimeout() time.Duration {
	return parseDurationOr(c.Extractor.Timeout, DefaultExtractorTimeout)
}

// NotifyTimeout parses notify.timeout, falling back to the default.
func (c *Config) NotifyTimeout() time.Duration {
	return parseDurationOr(c.Notify.Timeout, DefaultNotifyTimeout)
}

func parseDurationOr(s, fallback string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if err := c.validateDomains(); err != nil {
		return err
	}
	if err := c.validateUrgency(); err != nil {
		return err
	}
	if c.Staleness.Max < 0 || c.Staleness.Max > MaxStaleness {
		return fmt.Errorf("%w: staleness.max must be between 0 and %d", ErrInvalid, MaxStaleness)
	}
	if c.Staleness.SaturationDays < 1 {
		return fmt.Errorf("%w: staleness.saturation_days must be >= 1", ErrInvalid)
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if c.Brief.TopN < 1 {
		return fmt.Errorf("%w: brief.top_n must be >= 1", ErrInvalid)
	}
	if c.Brief.VaguePreview < 0 {
		return fmt.Errorf("%w: brief.vague_preview must be >= 0", ErrInvalid)
	}
	if err := c.validateNotes(); err != nil {
		return err
	}
	return c.validateServices()
}

func (c *Config) validateDomains() error {
	if len(c.Domains) == 0 {
		return fmt.Errorf("%w: at least 1 domain is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Domains))
	minWeight := MaxImpact
	for _, d := range c.Domains {
		if d.Name == "" {
			return fmt.Errorf("%w: domain name is required", ErrInvalid)
		}
		if d.Name == Uncategorized {
			return fmt.Errorf("%w: %q is reserved; use default_weight", ErrInvalid, Uncategorized)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalid, d.Name)
		}
		seen[d.Name] = true
		if d.Weight < 1 || d.Weight > MaxImpact {
			return fmt.Errorf("%w: domain %q weight must be between 1 and %d", ErrInvalid, d.Name, MaxImpact)
		}
		if d.MinTasks < 0 {
			return fmt.Errorf("%w: domain %q min_tasks must be >= 0", ErrInvalid, d.Name)
		}
		minWeight = min(minWeight, d.Weight)
	}
	if c.DefaultWeight < 1 || c.DefaultWeight >= minWeight {
		return fmt.Errorf("%w: default_weight must be >= 1 and below every domain weight (< %d)",
			ErrInvalid, minWeight)
	}
	return nil
}

func (c *Config) validateUrgency() error {
	u := c.Urgency
	if u.Max < 0 || u.Max > MaxUrgency {
		return fmt.Errorf("%w: urgency.max must be between 0 and %d", ErrInvalid, MaxUrgency)
	}
	for i, t := range u.Tiers {
		if t.Score < 0 || t.Score > u.Max {
			return fmt.Errorf("%w: urgency.tiers[%d].score must be between 0 and %d", ErrInvalid, i, u.Max)
		}
		if len(t.Keywords) == 0 {
			return fmt.Errorf("%w: urgency.tiers[%d] has no keywords", ErrInvalid, i)
		}
	}
	for i, b := range u.DeadlineBonus {
		if b.Bonus < 0 || b.Bonus > u.Max {
			return fmt.Errorf("%w: urgency.deadline_bonus[%d].bonus must be between 0 and %d", ErrInvalid, i, u.Max)
		}
		if i == 0 {
			continue
		}
		prev := u.DeadlineBonus[i-1]
		if b.WithinDays <= prev.WithinDays {
			return fmt.Errorf("%w: urgency.deadline_bonus within_days must be strictly increasing", ErrInvalid)
		}
		if b.Bonus > prev.Bonus {
			return fmt.Errorf("%w: urgency.deadline_bonus must not increase with distance", ErrInvalid)
		}
	}
	return nil
}

func (c *Config) validateDuplicates() error {
	switch c.Duplicates.Similarity {
	case SimilarityToken, SimilarityEdit:
	default:
		return fmt.Errorf("%w: duplicates.similarity must be %q or %q", ErrInvalid, SimilarityToken, SimilarityEdit)
	}
	if c.Duplicates.Threshold <= 0 || c.Duplicates.Threshold > 1 {
		return fmt.Errorf("%w: duplicates.threshold must be in (0, 1]", ErrInvalid)
	}
	return nil
}

func (c *Config) validateNotes() error {
	if c.Notes.ChunkSize < 1 {
		return fmt.Errorf("%w: notes.chunk_size must be >= 1", ErrInvalid)
	}
	for i, pattern := range c.Notes.ExcludeLabels {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("%w: notes.exclude_labels[%d] %q: %w", ErrInvalid, i, pattern, err)
		}
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.Extractor.Model == "" {
		return fmt.Errorf("%w: extractor.model is required", ErrInvalid)
	}
	if c.Extractor.Concurrency < 1 {
		return fmt.Errorf("%w: extractor.concurrency must be >= 1", ErrInvalid)
	}
	if c.Extractor.MaxTokens < 1 {
		return fmt.Errorf("%w: extractor.max_tokens must be >= 1", ErrInvalid)
	}
	if _, err := time.ParseDuration(c.Extractor.Timeout); err != nil {
		return fmt.Errorf("%w: invalid extractor.timeout %q: %w", ErrInvalid, c.Extractor.Timeout, err)
	}
	if c.Notify.MaxLength < 1 || c.Notify.MaxLength > DefaultNotifyMaxLength {
		return fmt.Errorf("%w: notify.max_length must be between 1 and %d", ErrInvalid, DefaultNotifyMaxLength)
	}
	if !slices.Contains([]string{"Markdown", "MarkdownV2", "HTML", ""}, c.Notify.ParseMode) {
		return fmt.Errorf("%w: notify.parse_mode %q is not supported", ErrInvalid, c.Notify.ParseMode)
	}
	if _, err := time.ParseDuration(c.Notify.Timeout); err != nil {
		return fmt.Errorf("%w: invalid notify.timeout %q: %w", ErrInvalid, c.Notify.Timeout, err)
	}
	return nil
}

// Init writes a default config into dir, creating it if needed.
func Init(dir string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads, migrates and validates a config from the given directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a .keepbrief directory
// containing config.yml. Returns the absolute path to that directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.ConfigNotFound,
				"no keepbrief config found (run 'keepbrief init' to create one)")
		}
		dir = parent
	}
}
