package config

// Recognized option keys. The same names are used in the environment and in config files.
const (
	KeySearchKeywords        = "SEARCH_KEYWORDS"
	KeyLocation              = "LOCATION"
	KeyEnableIndeed          = "ENABLE_INDEED"
	KeyEnableLinkedIn        = "ENABLE_LINKEDIN"
	KeyEnableWebSearch       = "ENABLE_WEB_SEARCH"
	KeyCSVSourcePath         = "CSV_SOURCE_PATH"
	KeyWebSearchPortals      = "WEB_SEARCH_PORTALS"
	KeyMaxSearchResults      = "MAX_SEARCH_RESULTS_PER_QUERY"
	KeyGoogleSearchAPIKey    = "GOOGLE_SEARCH_API_KEY"
	KeyGoogleSearchCX        = "GOOGLE_SEARCH_CX"
	KeyLinkedInCookie        = "LINKEDIN_SESSION_COOKIE"
	KeyFetchDescriptions     = "FETCH_DESCRIPTIONS"
	KeyUseBrowser            = "USE_BROWSER"
	KeyScrapeRatePerSec      = "SCRAPE_RATE_PER_SEC"
	KeySourceTimeout         = "SOURCE_TIMEOUT"
	KeyFetchTimeout          = "FETCH_TIMEOUT"
	KeyUnknownPostedAtPolicy = "UNKNOWN_POSTED_AT_POLICY"
	KeyTimeRangeHours        = "TIME_RANGE_HOURS"
	KeyRequiredSkills        = "REQUIRED_SKILLS"
	KeyPreferredSkills       = "PREFERRED_SKILLS"
	KeyExcludeKeywords       = "EXCLUDE_KEYWORDS"
	KeyMinSkillMatchScore    = "MIN_SKILL_MATCH_SCORE"
	KeyRequiredSkillBonus    = "REQUIRED_SKILL_BONUS"
	KeyHighTierThreshold     = "HIGH_TIER_THRESHOLD"
	KeyMediumTierThreshold   = "MEDIUM_TIER_THRESHOLD"
	KeyFilterTimeWindow      = "FILTER_TIME_WINDOW"
	KeyFilterExclude         = "FILTER_EXCLUDE"
	KeyFilterRequired        = "FILTER_REQUIRED"
	KeyFilterMinScore        = "FILTER_MIN_SCORE"
	KeyMaxResumes            = "MAX_RESUMES_TO_CUSTOMIZE"
	KeyEnableCustomization   = "ENABLE_RESUME_CUSTOMIZATION"
	KeyBaseResumePath        = "BASE_RESUME_PATH"
	KeyLLMProvider           = "LLM_PROVIDER"
	KeyModelName             = "MODEL_NAME"
	KeyModelMaxTokens        = "MODEL_MAX_TOKENS"
	KeyModelMaxAttempts      = "MODEL_MAX_ATTEMPTS"
	KeyModelCallTimeout      = "MODEL_CALL_TIMEOUT"
	KeyModelConcurrency      = "MODEL_CONCURRENCY"
	KeyFactCheckMode         = "FACT_CHECK_MODE"
	KeyGeminiAPIKey          = "GEMINI_API_KEY"
	KeyOpenAIAPIKey          = "OPENAI_API_KEY"
	KeyAnthropicAPIKey       = "ANTHROPIC_API_KEY"
	KeyOutputDir             = "OUTPUT_DIR"
	KeySummaryCSV            = "SUMMARY_CSV"
	KeyEnableEmail           = "ENABLE_EMAIL"
	KeyGmailUser             = "GMAIL_USER"
	KeyGmailPass             = "GMAIL_PASS"
	KeyToEmail               = "TO_EMAIL"
	KeySMTPHost              = "SMTP_HOST"
	KeySMTPPort              = "SMTP_PORT"
	KeyHistoryDB             = "HISTORY_DB"
	KeyArchiveBucket         = "ARCHIVE_S3_BUCKET"
	KeyArchivePrefix         = "ARCHIVE_S3_PREFIX"
)

// SecretKeys are the options that may live in the OS keychain instead of the environment
var SecretKeys = []string{
	KeyGmailPass,
	KeyGeminiAPIKey,
	KeyOpenAIAPIKey,
	KeyAnthropicAPIKey,
	KeyLinkedInCookie,
	KeyGoogleSearchAPIKey,
}

// IsSecretKey reports whether key may be stored in the keychain
func IsSecretKey(key string) bool {
	for _, k := range SecretKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Defaults are the documented default values for every option that has one
var Defaults = map[string]string{
	KeySearchKeywords:        "Machine Learning Engineer",
	KeyLocation:              "India",
	KeyEnableIndeed:          "true",
	KeyEnableLinkedIn:        "true",
	KeyEnableWebSearch:       "true",
	KeyWebSearchPortals:      "naukri.com,shine.com,monster.com,glassdoor.com,freshersworld.com,timesjobs.com,instahyre.com",
	KeyMaxSearchResults:      "20",
	KeyFetchDescriptions:     "true",
	KeyUseBrowser:            "false",
	KeyScrapeRatePerSec:      "0.5",
	KeySourceTimeout:         "3m",
	KeyFetchTimeout:          "15s",
	KeyUnknownPostedAtPolicy: string(PolicyInclude),
	KeyTimeRangeHours:        "24",
	KeyPreferredSkills:       "python,tensorflow,pytorch,scikit-learn,machine learning,deep learning,ai,artificial intelligence",
	KeyMinSkillMatchScore:    "1",
	KeyRequiredSkillBonus:    "3",
	KeyHighTierThreshold:     "3",
	KeyMediumTierThreshold:   "1",
	KeyFilterTimeWindow:      "true",
	KeyFilterExclude:         "true",
	KeyFilterRequired:        "true",
	KeyFilterMinScore:        "true",
	KeyMaxResumes:            "5",
	KeyEnableCustomization:   "false",
	KeyBaseResumePath:        "resume.txt",
	KeyLLMProvider:           "gemini",
	KeyModelMaxTokens:        "4096",
	KeyModelMaxAttempts:      "3",
	KeyModelCallTimeout:      "90s",
	KeyModelConcurrency:      "2",
	KeyFactCheckMode:         string(FactCheckStrict),
	KeyOutputDir:             "customized_resumes",
	KeySummaryCSV:            "job_listings.csv",
	KeyEnableEmail:           "true",
	KeySMTPHost:              "smtp.gmail.com",
	KeySMTPPort:              "465",
	KeyArchivePrefix:         "job-digest",
}
