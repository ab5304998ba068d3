// Package resume loads the base resume used by the customization pipeline.
package resume

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrEmpty is returned when a resume file contains no extractable text
var ErrEmpty = errors.New("resume contains no text")

// Resume is a loaded base resume
type Resume struct {
	// Path is the file the resume was read from
	Path string
	// Text is the plain text sent to the model
	Text string
	// Original is the unmodified file content, copied into every output folder
	Original []byte
}

// Ext returns the lower-cased extension of the source file, including the dot
func (r *Resume) Ext() string {
	return strings.ToLower(filepath.Ext(r.Path))
}

// LoadError describes a resume that could not be read
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resume %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("resume %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Supported reports whether the file extension can be loaded
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf", ".docx":
		return true
	default:
		return false
	}
}

// Load reads a .txt, .md, .pdf or .docx resume
func Load(path string) (*Resume, error) {
	if !Supported(path) {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported format %q", filepath.Ext(path))}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read failed", Cause: err}
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Message: "text extraction failed", Cause: err}
	}

	text = normalizeText(text)
	if text == "" {
		return nil, &LoadError{Path: path, Message: "no text", Cause: ErrEmpty}
	}
	return &Resume{Path: path, Text: text, Original: data}, nil
}

func pdfText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		sb.WriteString(page)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// docxText pulls paragraph text out of word/document.xml
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// normalizeText unifies line endings and drops trailing spaces and runs of blank lines
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
