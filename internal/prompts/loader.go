// Package prompts holds the embedded templates for the customization stages.
// Every *.json file in this directory maps template names to text with {{.Field}}
// placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Name identifies one template across all embedded files
type Name string

const (
	CustomizeResume Name = "customize-resume"
	CoverLetter     Name = "cover-letter"
)

var placeholderPattern = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// MissingFieldError is returned by Render when data lacks a placeholder the template uses
type MissingFieldError struct {
	Template Name
	Fields   []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("prompt %s: no value for %s", e.Template, strings.Join(e.Fields, ", "))
}

var loadTemplates = sync.OnceValues(func() (map[Name]string, error) {
	files, err := fs.Glob(promptFiles, "*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	templates := make(map[Name]string)
	origin := make(map[Name]string)
	for _, file := range files {
		data, err := promptFiles.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", file, err)
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", file, err)
		}
		for key, text := range entries {
			name := Name(key)
			if prev, dup := origin[name]; dup {
				return nil, fmt.Errorf("prompt %s defined in both %s and %s", name, prev, file)
			}
			templates[name] = text
			origin[name] = file
		}
	}
	return templates, nil
})

// lookup returns the raw text of a template
func lookup(name Name) (string, error) {
	templates, err := loadTemplates()
	if err != nil {
		return "", err
	}
	text, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	return text, nil
}

// placeholders returns the distinct field names used by text, in first-use order
func placeholders(text string) []string {
	var fields []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			fields = append(fields, m[1])
		}
	}
	return fields
}

// Render fills the named template from data. Substitution is single pass, so
// placeholder-like text inside a value (a scraped description, say) is left alone.
func Render(name Name, data map[string]string) (string, error) {
	text, err := lookup(name)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, field := range placeholders(text) {
		if _, ok := data[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return "", &MissingFieldError{Template: name, Fields: missing}
	}

	return fill(text, data), nil
}

// fill replaces {{.Field}} placeholders with values from data; unknown fields are kept
func fill(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		field := m[3 : len(m)-2]
		if value, ok := data[field]; ok {
			return value
		}
		return m
	})
}
