// Package ranking orders scored jobs and selects the ones sent for customization.
package ranking

import (
	"sort"

	"github.com/jonathan/job-digest/internal/types"
)

// Rank returns a new slice sorted by score (descending), then posting time (newest
// first, unknown last). Remaining ties keep discovery order, so identical input always
// yields identical output.
func Rank(jobs []types.Job) []types.Job {
	ranked := make([]types.Job, len(jobs))
	copy(ranked, jobs)

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})
	return ranked
}

func less(a, b *types.Job) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}

	aKnown, bKnown := a.HasPostedAt(), b.HasPostedAt()
	switch {
	case aKnown && bKnown:
		if !a.PostedAt.Equal(*b.PostedAt) {
			return a.PostedAt.After(*b.PostedAt)
		}
	case aKnown != bKnown:
		return aKnown
	}

	return a.Seq < b.Seq
}

// TopN returns the first n ranked jobs. A non-positive n selects none.
func TopN(ranked []types.Job, n int) []types.Job {
	if n <= 0 {
		return nil
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
