package ranking

import (
	"testing"
	"time"

	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func at(h int) *time.Time {
	t := now.Add(-time.Duration(h) * time.Hour)
	return &t
}

func jobIDs(jobs []types.Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

func TestRank_Order(t *testing.T) {
	jobs := []types.Job{
		{ID: "low", Score: 1, PostedAt: at(1), Seq: 0},
		{ID: "high-unknown", Score: 5, Seq: 1},
		{ID: "high-old", Score: 5, PostedAt: at(20), Seq: 2},
		{ID: "high-new", Score: 5, PostedAt: at(2), Seq: 3},
		{ID: "mid-a", Score: 3, Seq: 4},
		{ID: "mid-b", Score: 3, Seq: 5},
	}

	ranked := Rank(jobs)
	assert.Equal(t, []string{"high-new", "high-old", "high-unknown", "mid-a", "mid-b", "low"}, jobIDs(ranked))
	assert.Equal(t, "low", jobs[0].ID, "input is not reordered")
}

func TestRank_TiesKeepDiscoveryOrder(t *testing.T) {
	jobs := []types.Job{
		{ID: "c", Score: 2, PostedAt: at(3), Seq: 2},
		{ID: "a", Score: 2, PostedAt: at(3), Seq: 0},
		{ID: "b", Score: 2, PostedAt: at(3), Seq: 1},
	}
	assert.Equal(t, []string{"a", "b", "c"}, jobIDs(Rank(jobs)))
}

func TestRank_Deterministic(t *testing.T) {
	jobs := []types.Job{
		{ID: "1", Score: 2, Seq: 0},
		{ID: "2", Score: 4, PostedAt: at(5), Seq: 1},
		{ID: "3", Score: 2, Seq: 2},
		{ID: "4", Score: 4, PostedAt: at(5), Seq: 3},
	}

	first := TopN(Rank(jobs), 3)
	second := TopN(Rank(jobs), 3)
	require.Len(t, first, 3)
	assert.Equal(t, jobIDs(first), jobIDs(second))
	assert.Equal(t, []string{"2", "4", "1"}, jobIDs(first))
}

func TestTopN(t *testing.T) {
	jobs := []types.Job{{ID: "a"}, {ID: "b"}}
	assert.Len(t, TopN(jobs, 5), 2)
	assert.Len(t, TopN(jobs, 1), 1)
	assert.Empty(t, TopN(jobs, 0))
	assert.Empty(t, TopN(nil, 3))
}
