package customize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/jonathan/job-digest/internal/resume"
	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/jonathan/job-digest/internal/types"
)

// Files written into every output folder
const (
	ResumeFile         = "customized_resume.txt"
	CoverLetterFile    = "cover_letter.txt"
	OriginalResumeBase = "original_resume"
	JobInfoFile        = "job_info.json"
)

const maxFolderRunes = 120

// JobInfo is the structured record written as job_info.json
type JobInfo struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Company           string             `json:"company"`
	Location          string             `json:"location"`
	Source            types.Source       `json:"source"`
	URL               string             `json:"url"`
	Posted            string             `json:"posted,omitempty"`
	PostedAt          *time.Time         `json:"posted_at"`
	Score             int                `json:"score"`
	QualityTier       types.QualityTier  `json:"quality_tier"`
	MatchedSkills     []string           `json:"matched_skills"`
	Analysis          *types.JobAnalysis `json:"analysis,omitempty"`
	FactCheckWarnings []string           `json:"fact_check_warnings,omitempty"`
	ModelUsed         string             `json:"model_used"`
	APICallsMade      int                `json:"api_calls_made"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// SanitizeFolderName makes s safe as a single path element on common filesystems
func SanitizeFolderName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	name := strings.Join(strings.Fields(sb.String()), " ")
	if runes := []rune(name); len(runes) > maxFolderRunes {
		name = string(runes[:maxFolderRunes])
	}
	name = strings.Trim(name, " .")
	if name == "" {
		return "job"
	}
	return name
}

// PlanFolders assigns an output folder name to every job in order. The first job to claim
// "<title> - <company>" keeps it; later collisions get " - <id>" appended.
func PlanFolders(jobs []types.Job) []string {
	names := make([]string, len(jobs))
	used := make(map[string]bool, len(jobs))
	for i := range jobs {
		name := SanitizeFolderName(jobs[i].Title + " - " + jobs[i].Company)
		if used[strings.ToLower(name)] {
			name = withSuffix(name, " - "+SanitizeFolderName(jobs[i].ID))
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// withSuffix shortens name so that name+suffix fits in maxFolderRunes; the suffix is never cut
func withSuffix(name, suffix string) string {
	limit := maxFolderRunes - len([]rune(suffix))
	if limit < 1 {
		limit = 1
	}
	if runes := []rune(name); len(runes) > limit {
		name = strings.TrimRight(string(runes[:limit]), " .")
	}
	return name + suffix
}

// Materialize writes the four output files for a successful job and returns the folder path
func Materialize(outputDir, folder string, job *types.Job, result *types.CustomizationResult, base *resume.Resume, now time.Time) (string, error) {
	dir := filepath.Join(outputDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	info := NewJobInfo(job, result, now)
	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode job info: %w", err)
	}
	if err := schemas.Validate(schemas.JobInfo, infoJSON); err != nil {
		return "", fmt.Errorf("job info failed validation: %w", err)
	}

	ext := base.Ext()
	if ext == "" {
		ext = ".txt"
	}
	files := []struct {
		name string
		data []byte
	}{
		{ResumeFile, []byte(result.ResumeText + "\n")},
		{CoverLetterFile, []byte(result.CoverLetterText + "\n")},
		{OriginalResumeBase + ext, base.Original},
		{JobInfoFile, append(infoJSON, '\n')},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return dir, nil
}

// NewJobInfo builds the job_info.json record
func NewJobInfo(job *types.Job, result *types.CustomizationResult, now time.Time) JobInfo {
	skills := job.MatchedSkills
	if skills == nil {
		skills = []string{}
	}
	return JobInfo{
		ID:                job.ID,
		Title:             job.Title,
		Company:           job.Company,
		Location:          job.Location,
		Source:            job.Source,
		URL:               job.URL,
		Posted:            job.PostedText,
		PostedAt:          job.PostedAt,
		Score:             job.Score,
		QualityTier:       job.QualityTier,
		MatchedSkills:     skills,
		Analysis:          result.Analysis,
		FactCheckWarnings: result.FactCheckWarnings,
		ModelUsed:         result.ModelUsed,
		APICallsMade:      result.APICallsMade,
		GeneratedAt:       now.UTC(),
	}
}
