package customize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-digest/internal/types"
)

func TestSanitizeFolderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ML Engineer - Acme", want: "ML Engineer - Acme"},
		{in: "Sr. Engineer (AI/ML) - Foo: Bar", want: "Sr. Engineer (AI_ML) - Foo_ Bar"},
		{in: "  Data\tScientist  -  X  ", want: "Data Scientist - X"},
		{in: `a<b>c"d|e?f*g\h`, want: "a_b_c_d_e_f_g_h"},
		{in: "...", want: "job"},
		{in: "", want: "job"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFolderName(tt.in))
		})
	}
}

func TestSanitizeFolderName_Truncates(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "abcde"
	}
	assert.Len(t, []rune(SanitizeFolderName(long)), maxFolderRunes)
}

func TestPlanFolders_Collisions(t *testing.T) {
	jobs := []types.Job{
		{ID: "aaaa", Title: "ML Engineer", Company: "Acme"},
		{ID: "bbbb", Title: "ML Engineer", Company: "Acme"},
		{ID: "cccc", Title: "ml engineer", Company: "ACME"},
		{ID: "dddd", Title: "Data Scientist", Company: "Acme"},
	}

	assert.Equal(t, []string{
		"ML Engineer - Acme",
		"ML Engineer - Acme - bbbb",
		"ml engineer - ACME - cccc",
		"Data Scientist - Acme",
	}, PlanFolders(jobs))
}

func TestPlanFolders_LongNameCollisionKeepsID(t *testing.T) {
	title := strings.Repeat("Senior Machine Learning Platform Engineer ", 3)
	company := "Acme Platform Engineering"
	jobs := []types.Job{
		{ID: "aaaaaaaaaaaaaaaa", Title: title, Company: company},
		{ID: "bbbbbbbbbbbbbbbb", Title: title, Company: company},
		{ID: "cccccccccccccccc", Title: title, Company: company},
	}
	require.Greater(t, len([]rune(title+" - "+company)), maxFolderRunes)

	names := PlanFolders(jobs)
	assert.NotEqual(t, names[0], names[1])
	assert.NotEqual(t, names[1], names[2])
	assert.True(t, strings.HasSuffix(names[1], " - bbbbbbbbbbbbbbbb"), names[1])
	assert.True(t, strings.HasSuffix(names[2], " - cccccccccccccccc"), names[2])
	for _, name := range names {
		assert.LessOrEqual(t, len([]rune(name)), maxFolderRunes)
	}
}
