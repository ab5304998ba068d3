package steps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRegistry(t *testing.T) {
	for _, stepName := range Order {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
		assert.NotEmpty(t, def.Title)
	}
	assert.Len(t, StepRegistry, len(Order))
}

func TestStepRegistryCategories(t *testing.T) {
	categories := map[string][]string{
		CategoryIngestion:     {GatherSources, Normalize},
		CategoryMatching:      {Deduplicate, FilterScore, Rank},
		CategoryCustomization: {Customize},
		CategoryReport:        {BuildReport, Deliver},
	}

	for category, stepNames := range categories {
		for _, stepName := range stepNames {
			def, ok := StepRegistry[stepName]
			require.True(t, ok)
			assert.Equal(t, category, def.Category, "Step %s should be in category %s", stepName, category)
		}
	}
}

func TestDependenciesPrecedeInOrder(t *testing.T) {
	position := map[string]int{}
	for i, name := range Order {
		position[name] = i
	}
	for name, def := range StepRegistry {
		for _, dep := range append(append([]string{}, def.Dependencies...), def.Optional...) {
			assert.Less(t, position[dep], position[name], "%s must run after %s", name, dep)
		}
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                "test_step",
		MissingDependencies: []string{"dep1", "dep2"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Equal(t, "test_step", err.Step)
	assert.Equal(t, []string{"dep1", "dep2"}, err.MissingDependencies)
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := NewTracker(nil).ValidateDependencies("unknown_step")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestTracker_Flow(t *testing.T) {
	clock := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(func() time.Time { return clock })

	require.NoError(t, tr.Begin(GatherSources))
	clock = clock.Add(3 * time.Second)
	tr.Finish(GatherSources, StatusCompleted, "")

	var depErr *DependencyError
	err := tr.Begin(Deduplicate)
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, []string{Normalize}, depErr.MissingDependencies)

	for _, name := range []string{Normalize, Deduplicate, FilterScore, Rank} {
		require.NoError(t, tr.Begin(name))
		tr.Finish(name, StatusCompleted, "")
	}

	// the report needs customize to have finished, even if it was skipped
	require.Error(t, tr.Begin(BuildReport))
	tr.Finish(Customize, StatusSkipped, "disabled")
	require.NoError(t, tr.Begin(BuildReport))

	records := tr.Records()
	require.Len(t, records, 6)
	assert.Equal(t, GatherSources, records[0].Step)
	assert.Equal(t, 3*time.Second, records[0].Duration)
	for _, rec := range records {
		assert.NotEqual(t, Deliver, rec.Step)
	}
	assert.Equal(t, Customize, records[5].Step)
	assert.Equal(t, "disabled", records[5].Note)
}

func TestTracker_FailedDependencyBlocks(t *testing.T) {
	tr := NewTracker(nil)
	tr.Finish(BuildReport, StatusFailed, "csv")
	err := tr.Begin(Deliver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), BuildReport)
}

func TestBanner(t *testing.T) {
	assert.Equal(t, "Step 1/8: Gathering postings from sources...", Banner(GatherSources))
	assert.Equal(t, "Step 6/8: Customizing resumes...", Banner(Customize))
	assert.Equal(t, "Step 8/8: Delivering digest...", Banner(Deliver))
}
