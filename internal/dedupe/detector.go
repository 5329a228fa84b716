package dedupe

import (
	"cmp"
	"slices"

	"github.com/twiced-technology-gmbh/keepbrief/internal/config"
	"github.com/twiced-technology-gmbh/keepbrief/internal/date"
	"github.com/twiced-technology-gmbh/keepbrief/internal/task"
)

// Group is a set of at least two tasks judged to describe the same work.
// Members are ordered best first; the first member is the representative.
type Group struct {
	Representative task.Scored   `json:"representative" yaml:"representative"`
	Members        []task.Scored `json:"members" yaml:"members"`
}

// Size returns the number of members.
func (g Group) Size() int {
	return len(g.Members)
}

// Detector groups duplicate tasks.
type Detector struct {
	normalizer *Normalizer
	similarity Similarity
	threshold  float64
}

// NewDetector builds a Detector from the duplicates config.
func NewDetector(cfg config.DuplicatesConfig) (*Detector, error) {
	sim, err := NewSimilarity(cfg.Similarity)
	if err != nil {
		return nil, err
	}
	return &Detector{
		normalizer: NewNormalizer(cfg.StopWords),
		similarity: sim,
		threshold:  cfg.Threshold,
	}, nil
}

// WithSimilarity returns a copy of d using sim.
func (d *Detector) WithSimilarity(sim Similarity) *Detector {
	c := *d
	c.similarity = sim
	return &c
}

// Similar reports the similarity of two texts after normalization.
func (d *Detector) Similar(a, b string) float64 {
	return d.similarity.Compare(d.normalizer.Tokens(a), d.normalizer.Tokens(b))
}

// Group merges every pair at or above the threshold, transitively, and
// returns the groups with two or more members. Membership does not depend on
// the order of tasks.
func (d *Detector) Group(tasks []task.Scored) []Group {
	tokens := make([][]string, len(tasks))
	for i, t := range tasks {
		tokens[i] = d.normalizer.Tokens(t.Text)
	}

	uf := newUnionFind(len(tasks))
	for i := range tasks {
		for j := i + 1; j < len(tasks); j++ {
			if d.similarity.Compare(tokens[i], tokens[j]) >= d.threshold {
				uf.union(i, j)
			}
		}
	}

	var groups []Group
	for _, idx := range uf.sets(2) { //nolint:mnd // a group needs two members
		members := make([]task.Scored, len(idx))
		for k, i := range idx {
			members[k] = tasks[i]
		}
		slices.SortFunc(members, CompareMembers)
		groups = append(groups, Group{Representative: members[0], Members: members})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return CompareMembers(a.Representative, b.Representative)
	})
	return groups
}

// CompareMembers orders tasks by total score descending, then text, source
// note, domain and deadline ascending.
func CompareMembers(a, b task.Scored) int {
	return cmp.Or(
		cmp.Compare(b.Score.Total, a.Score.Total),
		cmp.Compare(a.Text, b.Text),
		cmp.Compare(a.SourceNoteID, b.SourceNoteID),
		cmp.Compare(a.Domain, b.Domain),
		date.Compare(a.Deadline, b.Deadline),
	)
}

// Count returns the number of tasks that belong to some group.
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += g.Size()
	}
	return n
}
