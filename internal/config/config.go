// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// UnknownPostedAtPolicy decides what the time-window stage does with jobs whose posting time is unknown
type UnknownPostedAtPolicy string

const (
	// PolicyInclude keeps jobs with unknown posted_at in the time-window stage
	PolicyInclude UnknownPostedAtPolicy = "include"
	// PolicyExclude drops jobs with unknown posted_at in the time-window stage
	PolicyExclude UnknownPostedAtPolicy = "exclude"
)

// FactCheckMode controls the post-generation fact-containment check
type FactCheckMode string

const (
	// FactCheckStrict fails a job whose output mentions terms absent from the base resume
	FactCheckStrict FactCheckMode = "strict"
	// FactCheckWarn keeps the job and records the unsupported terms on its result
	FactCheckWarn FactCheckMode = "warn"
	// FactCheckOff skips the check
	FactCheckOff FactCheckMode = "off"
)

// Config is the immutable run configuration. It is built once by Load and passed by
// pointer to every component; nothing below cmd reads the environment.
type Config struct {
	// Search
	SearchKeywords string `validate:"required"`
	Location       string

	// Sources
	EnableIndeed          bool
	EnableLinkedIn        bool
	EnableWebSearch       bool
	CSVSourcePath         string
	WebSearchPortals      []string
	MaxSearchResults      int                   `validate:"gte=1,lte=100"`
	GoogleSearchAPIKey    string
	GoogleSearchCX        string
	LinkedInCookie        string
	FetchDescriptions     bool
	UseBrowser            bool
	ScrapeRatePerSec      float64               `validate:"gt=0"`
	SourceTimeout         time.Duration         `validate:"gt=0"`
	FetchTimeout          time.Duration         `validate:"gt=0"`
	UnknownPostedAt       UnknownPostedAtPolicy `validate:"oneof=include exclude"`
	TimeRangeHours        int                   `validate:"gte=1"`
	RequiredSkills        []string
	PreferredSkills       []string
	ExcludeKeywords       []string
	MinSkillMatchScore    int                   `validate:"gte=0"`
	RequiredSkillBonus    int                   `validate:"gte=0"`
	HighTierThreshold     int                   `validate:"gte=0"`
	MediumTierThreshold   int                   `validate:"gte=0"`
	FilterTimeWindow      bool
	FilterExclude         bool
	FilterRequired        bool
	FilterMinScore        bool
	MaxResumesToCustomize int                   `validate:"gte=0"`

	// Customization
	EnableCustomization bool
	BaseResumePath      string
	LLMProvider         string        `validate:"oneof=gemini openai anthropic"`
	ModelName           string
	ModelMaxTokens      int           `validate:"gte=256"`
	ModelMaxAttempts    int           `validate:"gte=1,lte=10"`
	ModelCallTimeout    time.Duration `validate:"gt=0"`
	ModelConcurrency    int           `validate:"gte=1,lte=16"`
	FactCheckMode       FactCheckMode `validate:"oneof=strict warn off"`
	GeminiAPIKey        string
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	OutputDir           string        `validate:"required"`

	// Report
	SummaryCSV    string `validate:"required"`
	EnableEmail   bool
	GmailUser     string
	GmailPass     string
	ToEmail       string
	SMTPHost      string
	SMTPPort      int    `validate:"gte=1,lte=65535"`
	HistoryDB     string
	ArchiveBucket string
	ArchivePrefix string

	Verbose bool
}

// APIKey returns the credential for the configured provider
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// apiKeyName returns the env key holding the configured provider's credential
func (c *Config) apiKeyName() string {
	switch c.LLMProvider {
	case "openai":
		return KeyOpenAIAPIKey
	case "anthropic":
		return KeyAnthropicAPIKey
	default:
		return KeyGeminiAPIKey
	}
}

// WebSearchQueries returns the query set sent to the search engine: one site-restricted
// query per portal followed by the generic queries.
func (c *Config) WebSearchQueries() []string {
	kw := c.SearchKeywords
	loc := c.Location
	queries := make([]string, 0, len(c.WebSearchPortals)+3)
	for _, portal := range c.WebSearchPortals {
		queries = append(queries, fmt.Sprintf("%s jobs %s site:%s", kw, loc, portal))
	}
	queries = append(queries,
		fmt.Sprintf("%s jobs %s remote", kw, loc),
		fmt.Sprintf("%q jobs posted today %s", kw, loc),
		fmt.Sprintf("%q hiring %s latest", kw, loc),
	)
	return queries
}

// ValidationError lists every configuration problem found at startup
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config error: " + strings.Join(e.Problems, "; ")
}

// Validate checks ranges and enums, then the credential rules for enabled features.
// It performs no network I/O.
func (c *Config) Validate() error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if c.MediumTierThreshold > c.HighTierThreshold {
		problems = append(problems, fmt.Sprintf("%s (%d) must not exceed %s (%d)",
			KeyMediumTierThreshold, c.MediumTierThreshold, KeyHighTierThreshold, c.HighTierThreshold))
	}

	if c.EnableCustomization {
		if c.APIKey() == "" {
			problems = append(problems, fmt.Sprintf("%s is required when %s is enabled", c.apiKeyName(), KeyEnableCustomization))
		}
		if strings.TrimSpace(c.BaseResumePath) == "" {
			problems = append(problems, fmt.Sprintf("%s is required when %s is enabled", KeyBaseResumePath, KeyEnableCustomization))
		} else if !fileExists(c.BaseResumePath) {
			problems = append(problems, fmt.Sprintf("base resume not found: %s", c.BaseResumePath))
		}
	}

	if c.EnableEmail {
		if c.GmailUser == "" {
			problems = append(problems, fmt.Sprintf("%s is required when %s is enabled", KeyGmailUser, KeyEnableEmail))
		}
		if c.GmailPass == "" {
			problems = append(problems, fmt.Sprintf("%s is required when %s is enabled", KeyGmailPass, KeyEnableEmail))
		}
		if c.ToEmail == "" {
			problems = append(problems, fmt.Sprintf("%s is required when %s is enabled", KeyToEmail, KeyEnableEmail))
		}
	}

	if c.CSVSourcePath != "" && !fileExists(c.CSVSourcePath) {
		problems = append(problems, fmt.Sprintf("CSV source not found: %s", c.CSVSourcePath))
	}

	if (c.GoogleSearchAPIKey == "") != (c.GoogleSearchCX == "") {
		problems = append(problems, fmt.Sprintf("%s and %s must be set together", KeyGoogleSearchAPIKey, KeyGoogleSearchCX))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
