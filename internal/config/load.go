package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Lookup resolves a single option. ok is false when the source has no value for key.
type Lookup func(key string) (value string, ok bool)

// EnvLookup reads options from the process environment
func EnvLookup() Lookup {
	return os.LookupEnv
}

// MapLookup reads options from a fixed map (flags, tests)
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// Chain tries each lookup in order and returns the first hit with a non-empty value
func Chain(lookups ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(key); ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		return "", false
	}
}

// FileLookup loads a YAML (or JSON) file of KEY: value pairs.
// Keys are matched case-insensitively; lists are joined with commas.
func FileLookup(path string) (Lookup, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[strings.ToUpper(strings.TrimSpace(k))] = stringify(v)
	}
	return MapLookup(values), nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// Load builds the configuration from lookup, falling back to Defaults.
// Parse errors for typed options are collected into a ValidationError; Validate is not called.
func Load(lookup Lookup) (*Config, error) {
	l := &loader{lookup: Chain(lookup, MapLookup(Defaults))}

	cfg := &Config{
		SearchKeywords:        l.str(KeySearchKeywords),
		Location:              l.str(KeyLocation),
		EnableIndeed:          l.boolean(KeyEnableIndeed),
		EnableLinkedIn:        l.boolean(KeyEnableLinkedIn),
		EnableWebSearch:       l.boolean(KeyEnableWebSearch),
		CSVSourcePath:         l.str(KeyCSVSourcePath),
		WebSearchPortals:      l.list(KeyWebSearchPortals),
		MaxSearchResults:      l.integer(KeyMaxSearchResults),
		GoogleSearchAPIKey:    l.str(KeyGoogleSearchAPIKey),
		GoogleSearchCX:        l.str(KeyGoogleSearchCX),
		LinkedInCookie:        l.str(KeyLinkedInCookie),
		FetchDescriptions:     l.boolean(KeyFetchDescriptions),
		UseBrowser:            l.boolean(KeyUseBrowser),
		ScrapeRatePerSec:      l.float(KeyScrapeRatePerSec),
		SourceTimeout:         l.duration(KeySourceTimeout),
		FetchTimeout:          l.duration(KeyFetchTimeout),
		UnknownPostedAt:       UnknownPostedAtPolicy(strings.ToLower(l.str(KeyUnknownPostedAtPolicy))),
		TimeRangeHours:        l.integer(KeyTimeRangeHours),
		RequiredSkills:        l.list(KeyRequiredSkills),
		PreferredSkills:       l.list(KeyPreferredSkills),
		ExcludeKeywords:       l.list(KeyExcludeKeywords),
		MinSkillMatchScore:    l.integer(KeyMinSkillMatchScore),
		RequiredSkillBonus:    l.integer(KeyRequiredSkillBonus),
		HighTierThreshold:     l.integer(KeyHighTierThreshold),
		MediumTierThreshold:   l.integer(KeyMediumTierThreshold),
		FilterTimeWindow:      l.boolean(KeyFilterTimeWindow),
		FilterExclude:         l.boolean(KeyFilterExclude),
		FilterRequired:        l.boolean(KeyFilterRequired),
		FilterMinScore:        l.boolean(KeyFilterMinScore),
		MaxResumesToCustomize: l.integer(KeyMaxResumes),
		EnableCustomization:   l.boolean(KeyEnableCustomization),
		BaseResumePath:        l.str(KeyBaseResumePath),
		LLMProvider:           strings.ToLower(l.str(KeyLLMProvider)),
		ModelName:             l.str(KeyModelName),
		ModelMaxTokens:        l.integer(KeyModelMaxTokens),
		ModelMaxAttempts:      l.integer(KeyModelMaxAttempts),
		ModelCallTimeout:      l.duration(KeyModelCallTimeout),
		ModelConcurrency:      l.integer(KeyModelConcurrency),
		FactCheckMode:         FactCheckMode(strings.ToLower(l.str(KeyFactCheckMode))),
		GeminiAPIKey:          l.str(KeyGeminiAPIKey),
		OpenAIAPIKey:          l.str(KeyOpenAIAPIKey),
		AnthropicAPIKey:       l.str(KeyAnthropicAPIKey),
		OutputDir:             l.str(KeyOutputDir),
		SummaryCSV:            l.str(KeySummaryCSV),
		EnableEmail:           l.boolean(KeyEnableEmail),
		GmailUser:             l.str(KeyGmailUser),
		GmailPass:             l.str(KeyGmailPass),
		ToEmail:               l.str(KeyToEmail),
		SMTPHost:              l.str(KeySMTPHost),
		SMTPPort:              l.integer(KeySMTPPort),
		HistoryDB:             l.str(KeyHistoryDB),
		ArchiveBucket:         l.str(KeyArchiveBucket),
		ArchivePrefix:         l.str(KeyArchivePrefix),
	}

	// TO_EMAIL defaults to the sender
	if cfg.ToEmail == "" {
		cfg.ToEmail = cfg.GmailUser
	}

	if len(l.problems) > 0 {
		return nil, &ValidationError{Problems: l.problems}
	}
	return cfg, nil
}

type loader struct {
	lookup   Lookup
	problems []string
}

func (l *loader) str(key string) string {
	v, _ := l.lookup(key)
	return strings.TrimSpace(v)
}

// list splits a comma-separated value, trimming and lower-casing entries and dropping empties
func (l *loader) list(key string) []string {
	v := l.str(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (l *loader) boolean(key string) bool {
	v := l.str(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return false
	}
	return b
}

func (l *loader) integer(key string) int {
	v := l.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s: invalid integer %q", key, v))
		return 0
	}
	return n
}

func (l *loader) float(key string) float64 {
	v := l.str(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s: invalid number %q", key, v))
		return 0
	}
	return f
}

// duration accepts Go durations ("90s") or a bare number of seconds
func (l *loader) duration(key string) time.Duration {
	v := l.str(key)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.problems = append(l.problems, fmt.Sprintf("%s: invalid duration %q", key, v))
		return 0
	}
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
