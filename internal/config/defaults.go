// Package config handles the pipeline configuration: domain weights, neglect
// thresholds, urgency tiers, staleness window, duplicate similarity and
// display settings.
package config

const (
	// DefaultDir is the project-local config directory name.
	DefaultDir = ".keepbrief"
	// ConfigFileName is the name of the config file within the config directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// Uncategorized is the reserved domain for tasks outside the closed set.
	Uncategorized = "uncategorized"

	// Hard caps on the score components. Configured maxima may be lower.
	MaxUrgency   = 80
	MaxImpact    = 25
	MaxStaleness = 20

	// DefaultWeight is the impact for uncategorized or unknown domains.
	DefaultWeight = 5
	// DefaultTopN is the number of priorities shown in a brief.
	DefaultTopN = 5
	// DefaultVaguePreview is the number of vague notes listed in a brief.
	DefaultVaguePreview = 5
	// DefaultSaturationDays is the age at which staleness saturates.
	DefaultSaturationDays = 30
	// DefaultSimilarity is the duplicate similarity strategy.
	DefaultSimilarity = SimilarityToken
	// DefaultSimilarityThreshold is the minimum similarity for a duplicate pair.
	DefaultSimilarityThreshold = 0.6
	// DefaultChunkSize is the number of notes sent per extraction call.
	DefaultChunkSize = 30
	// DefaultConcurrency is the number of extraction calls in flight.
	DefaultConcurrency = 2
	// DefaultModel is the extraction model.
	DefaultModel = "gpt-4o-mini"
	// DefaultMaxTokens bounds one extraction response.
	DefaultMaxTokens = 4096
	// DefaultExtractorTimeout bounds one extraction call.
	DefaultExtractorTimeout = "90s"
	// DefaultNotifyMaxLength is the Telegram message size limit.
	DefaultNotifyMaxLength = 4096
	// DefaultNotifyTimeout bounds one notification call.
	DefaultNotifyTimeout = "10s"
	// DefaultParseMode is the first Telegram parse mode tried.
	DefaultParseMode = "Markdown"
)

// Similarity strategy names.
const (
	SimilarityToken = "token"
	SimilarityEdit  = "edit"
)

// Default slice values (slices cannot be const).
var (
	// DefaultDomains is the closed domain set with impact weights and the
	// minimum number of tasks below which a domain counts as neglected.
	DefaultDomains = []DomainConfig{
		{Name: "health", Weight: 25, MinTasks: 2},
		{Name: "finance", Weight: 22, MinTasks: 2},
		{Name: "career", Weight: 20, MinTasks: 2},
		{Name: "admin", Weight: 15, MinTasks: 1},
		{Name: "relationships", Weight: 12, MinTasks: 3},
		{Name: "learning", Weight: 10, MinTasks: 1},
		{Name: "personal_projects", Weight: 8, MinTasks: 1},
	}

	// DefaultTiers maps urgency keywords to severity scores.
	DefaultTiers = []KeywordTier{
		{Score: 25, Keywords: []string{"today", "now", "immediately"}},
		{Score: 20, Keywords: []string{"urgent", "asap", "critical"}},
		{Score: 15, Keywords: []string{"deadline", "overdue", "due"}},
		{Score: 12, Keywords: []string{"tomorrow"}},
		{Score: 10, Keywords: []string{"this week", "expires"}},
		{Score: 8, Keywords: []string{"final", "last chance"}},
		{Score: 5, Keywords: []string{"soon"}},
	}

	// DefaultDeadlineBonus is the deadline proximity curve. A deadline at or
	// before WithinDays days away earns Bonus; past deadlines earn the first row.
	DefaultDeadlineBonus = []DeadlineBonus{
		{WithinDays: 0, Bonus: 60},
		{WithinDays: 1, Bonus: 55},
		{WithinDays: 3, Bonus: 45},
		{WithinDays: 7, Bonus: 30},
		{WithinDays: 14, Bonus: 15},
		{WithinDays: 30, Bonus: 5},
	}

	// DefaultStopWords are dropped before duplicate comparison.
	DefaultStopWords = []string{
		"a", "an", "the", "to", "for", "of", "and", "or", "my", "on",
		"in", "at", "with", "about", "some", "this", "that",
	}
)
