package scoring

import (
	"time"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
)

const day = 24 * time.Hour

// Staleness scores neglect from the age of the last edit.
type Staleness struct {
	max            int
	saturationDays int
}

// NewStaleness builds a staleness scorer.
func NewStaleness(cfg config.StalenessConfig) Staleness {
	return Staleness{
		max:            clamp(cfg.Max, 0, config.MaxStaleness),
		saturationDays: max(cfg.SaturationDays, 1),
	}
}

// Score returns round(max * days / saturationDays) clamped to [0, max], where
// days is the number of whole days between lastEdited and now. A zero
// lastEdited (unknown) and edits in the future score 0.
func (s Staleness) Score(lastEdited, now time.Time) int {
	if lastEdited.IsZero() {
		return 0
	}
	days := int(now.Sub(lastEdited) / day)
	if days <= 0 {
		return 0
	}
	if days >= s.saturationDays {
		return s.max
	}
	// Integer round half up.
	score := (2*s.max*days + s.saturationDays) / (2 * s.saturationDays)
	return clamp(score, 0, s.max)
}
