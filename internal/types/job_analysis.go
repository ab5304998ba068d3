// Package types provides type definitions for structured data used throughout the job-digest system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// JobAnalysis is the structured output of the analyzing stage
type JobAnalysis struct {
	RoleTitle        string   `json:"role_title"`
	Seniority        string   `json:"seniority"`
	RequiredSkills   []string `json:"required_skills"`
	PreferredSkills  []string `json:"preferred_skills"`
	Responsibilities []string `json:"responsibilities"`
	Keywords         []string `json:"keywords"`
}

// AllSkills returns required and preferred skills in order
func (a *JobAnalysis) AllSkills() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.RequiredSkills)+len(a.PreferredSkills))
	out = append(out, a.RequiredSkills...)
	out = append(out, a.PreferredSkills...)
	return out
}
