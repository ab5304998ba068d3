// Package types provides type definitions for structured data used throughout the job-digest system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// CustomizationStatus is the terminal outcome of one job in the customization pipeline
type CustomizationStatus string

const (
	// StatusSuccess means resume and cover letter were generated and written
	StatusSuccess CustomizationStatus = "success"
	// StatusSkipped means the job was selected but not processed
	StatusSkipped CustomizationStatus = "skipped"
	// StatusFailed means a stage failed; ErrorReason says which
	StatusFailed CustomizationStatus = "failed"
)

// CustomizationState is a step of the per-job state machine
type CustomizationState string

const (
	StatePending               CustomizationState = "pending"
	StateAnalyzing             CustomizationState = "analyzing"
	StateCustomizing           CustomizationState = "customizing"
	StateGeneratingCoverLetter CustomizationState = "generating_cover_letter"
	StateSuccess               CustomizationState = "success"
	StateFailed                CustomizationState = "failed"
)

// Failure reason codes recorded in CustomizationResult.ErrorReason
const (
	ReasonAnalysisError       = "analysis_error"
	ReasonCustomizationError  = "customization_error"
	ReasonCoverLetterError    = "cover_letter_error"
	ReasonFabricationDetected = "fabrication_detected"
	ReasonMaterializeError    = "materialize_error"
)

// Failure detail codes recorded in CustomizationResult.ErrorCode
const (
	CodeRetriesExhausted = "retries_exhausted"
	CodeInvalidResponse  = "invalid_response"
	CodeProviderError    = "provider_error"
	CodeIOError          = "io_error"
	CodeUnsupportedToken = "unsupported_tokens"
)

// CustomizationResult is the outcome of processing one Job through the AI pipeline
type CustomizationResult struct {
	JobID  string              `json:"job_id"`
	Status CustomizationStatus `json:"status"`
	// FinalState is the terminal state of the machine (success or failed, pending when skipped)
	FinalState CustomizationState `json:"final_state"`
	// FailedStage is the stage that was running when the job failed
	FailedStage CustomizationState `json:"failed_stage,omitempty"`

	Analysis        *JobAnalysis `json:"analysis,omitempty"`
	ResumeText      string       `json:"resume_text,omitempty"`
	CoverLetterText string       `json:"cover_letter_text,omitempty"`

	ErrorReason string `json:"error_reason,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
	// Note explains a skipped job or carries fact-check warnings
	Note string `json:"note,omitempty"`
	// FactCheckWarnings lists tokens found in the output but not in the source resume
	FactCheckWarnings []string `json:"fact_check_warnings,omitempty"`

	OutputFolder string `json:"output_folder,omitempty"`
	ModelUsed    string `json:"model_used"`
	APICallsMade int    `json:"api_calls_made"`
}

// Failed reports whether the job ended in the failed state
func (r *CustomizationResult) Failed() bool {
	return r.Status == StatusFailed
}

// Reason returns "<reason>/<code>" for report lines, or "" for non-failures
func (r *CustomizationResult) Reason() string {
	if r.Status != StatusFailed {
		return ""
	}
	if r.ErrorCode == "" {
		return r.ErrorReason
	}
	return r.ErrorReason + "/" + r.ErrorCode
}
