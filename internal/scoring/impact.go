package scoring

import (
	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Impact looks up domain weights.
type Impact struct {
	weights       map[string]int
	names         []string
	defaultWeight int
	strict        bool
}

// NewImpact builds an impact scorer from the domain weight table.
func NewImpact(cfg *config.Config) *Impact {
	weights := make(map[string]int, len(cfg.Domains))
	for _, d := range cfg.Domains {
		weights[d.Name] = clamp(d.Weight, 0, config.MaxImpact)
	}
	return &Impact{
		weights:       weights,
		names:         cfg.DomainNames(),
		defaultWeight: clamp(cfg.DefaultWeight, 0, config.MaxImpact),
		strict:        cfg.StrictDomains,
	}
}

// Score returns the weight of domain. Uncategorized and unknown domains get
// the default weight; in strict mode an unknown domain is an InvalidInput error.
func (i *Impact) Score(domain string) (int, error) {
	if w, ok := i.weights[domain]; ok {
		return w, nil
	}
	if i.strict {
		if err := task.ValidateDomain(domain, i.names); err != nil {
			return 0, err
		}
	}
	return i.defaultWeight, nil
}
