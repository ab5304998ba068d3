// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobAnalysis")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// JobAnalysisSchema returns the extraction schema for the analyzing stage.
// Field names match types.JobAnalysis.
func JobAnalysisSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "JobAnalysis",
		Description: `You are an expert technical recruiter analyzing a job posting.
Your task is to extract the structured requirements a candidate must address.
Use the wording of the posting for skills and keywords. Do not add skills the posting does not mention.`,
		Fields: []SchemaField{
			{
				Name:        "role_title",
				Type:        "\"string\"",
				Description: "The role as named in the posting",
				Required:    true,
			},
			{
				Name:        "seniority",
				Type:        "\"string\"",
				Description: "One of: intern, junior, mid, senior, staff, principal, unknown - based on title and years of experience asked",
				Required:    true,
			},
			{
				Name:        "required_skills",
				Type:        "[\"string\"]",
				Description: "Skills, tools and qualifications stated as required",
				Required:    true,
			},
			{
				Name:        "preferred_skills",
				Type:        "[\"string\"]",
				Description: "Skills stated as preferred, bonus or nice-to-have",
				Required:    false,
			},
			{
				Name:        "responsibilities",
				Type:        "[\"string\"]",
				Description: "Main duties of the role, one short phrase each",
				Required:    false,
			},
			{
				Name:        "keywords",
				Type:        "[\"string\"]",
				Description: "Domain terms an applicant tracking system would match on",
				Required:    false,
			},
		},
	}
}
