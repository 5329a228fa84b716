// Package balance measures how tasks spread across the configured domains.
package balance

import (
	"cmp"
	"slices"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// DomainStat is the task count of one configured domain against its
// neglect threshold.
type DomainStat struct {
	Domain      string `json:"domain" yaml:"domain"`
	TaskCount   int    `json:"task_count" yaml:"task_count"`
	Threshold   int    `json:"threshold" yaml:"threshold"`
	IsNeglected bool   `json:"is_neglected" yaml:"is_neglected"`
}

// Analyze counts tasks per configured domain. It returns exactly one stat per
// domain in config order, including domains without tasks. Tasks in other
// domains (uncategorized included) are not counted.
func Analyze(tasks []task.Extracted, cfg *config.Config) []DomainStat {
	counts := make(map[string]int, len(cfg.Domains))
	for _, t := range tasks {
		counts[t.Domain]++
	}

	stats := make([]DomainStat, len(cfg.Domains))
	for i, d := range cfg.Domains {
		n := counts[d.Name]
		stats[i] = DomainStat{
			Domain:      d.Name,
			TaskCount:   n,
			Threshold:   d.MinTasks,
			IsNeglected: n < d.MinTasks,
		}
	}
	return stats
}

// Neglected returns the neglected stats, fewest tasks first, ties by name.
func Neglected(stats []DomainStat) []DomainStat {
	var out []DomainStat
	for _, s := range stats {
		if s.IsNeglected {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b DomainStat) int {
		return cmp.Or(
			cmp.Compare(a.TaskCount, b.TaskCount),
			cmp.Compare(a.Domain, b.Domain),
		)
	})
	return out
}
