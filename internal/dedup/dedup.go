// Package dedup collapses job records that refer to the same posting.
package dedup

import (
	"sort"

	"github.com/jonathan/job-digest/internal/normalize"
	"github.com/jonathan/job-digest/internal/types"
)

// Result is the deduplicated job list plus what was collapsed
type Result struct {
	Jobs []types.Job
	// Removed maps each kept job ID to the IDs merged into it
	Removed map[string][]string
}

// RemovedCount returns the number of jobs dropped as duplicates
func (r *Result) RemovedCount() int {
	var n int
	for _, ids := range r.Removed {
		n += len(ids)
	}
	return n
}

// Deduplicate returns at most one job per posting. Jobs with equal non-empty canonical
// URLs are the same posting. A job without a URL joins the first job with the same
// normalized (title, company, location) triple that has a URL, or the triple's first job
// when none has one. Jobs with different non-empty URLs never end up in one group.
// Each group keeps the member with the longest description, ties going to the earliest
// seen, at the position of the group's earliest member. Output is deterministic for a
// given input order.
func Deduplicate(jobs []types.Job) *Result {
	n := len(jobs)
	uf := newUnionFind(n)

	urls := make([]string, n)
	byURL := make(map[string]int)
	byTriple := make(map[string][]int)

	for i := range jobs {
		urls[i] = normalize.CanonicalURL(jobs[i].URL)
		if urls[i] != "" {
			if first, ok := byURL[urls[i]]; ok {
				uf.union(first, i)
			} else {
				byURL[urls[i]] = i
			}
		}

		key := tripleKey(&jobs[i])
		byTriple[key] = append(byTriple[key], i)
	}

	for _, members := range byTriple {
		anchor := members[0]
		for _, m := range members {
			if urls[m] != "" {
				anchor = m
				break
			}
		}
		for _, m := range members {
			if urls[m] == "" {
				uf.union(anchor, m)
			}
		}
	}

	type group struct {
		first int
		best  int
		all   []int
	}
	groups := make(map[int]*group)
	for i := range jobs {
		root := uf.find(i)
		g, ok := groups[root]
		if !ok {
			g = &group{first: i, best: i}
			groups[root] = g
		}
		g.all = append(g.all, i)
		if len(jobs[i].Description) > len(jobs[g.best].Description) {
			g.best = i
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].first < ordered[b].first })

	result := &Result{
		Jobs:    make([]types.Job, 0, len(ordered)),
		Removed: make(map[string][]string),
	}
	for _, g := range ordered {
		kept := jobs[g.best]
		result.Jobs = append(result.Jobs, kept)
		for _, idx := range g.all {
			if idx != g.best {
				result.Removed[kept.ID] = append(result.Removed[kept.ID], jobs[idx].ID)
			}
		}
	}
	return result
}

func tripleKey(job *types.Job) string {
	return normalize.Key(job.Title) + "\x00" + normalize.Key(job.Company) + "\x00" + normalize.Key(job.Location)
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union attaches the later root under the earlier one so roots stay stable
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
