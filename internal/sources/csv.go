package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/types"
)

// csvColumnAliases maps accepted header names to RawRecord fields.
var csvColumnAliases = map[string]string{
	"title":           types.FieldTitle,
	"job_title":       types.FieldTitle,
	"position":        types.FieldTitle,
	"company":         types.FieldCompany,
	"company_name":    types.FieldCompany,
	"employer":        types.FieldCompany,
	"location":        types.FieldLocation,
	"description":     types.FieldDescription,
	"job_description": types.FieldDescription,
	"url":             types.FieldURL,
	"link":            types.FieldURL,
	"job_url":         types.FieldURL,
	"posted":          types.FieldPosted,
	"date_posted":     types.FieldPosted,
	"posted_at":       types.FieldPostedDateTime,
	"posting_time":    types.FieldPostedDateTime,
	"search_query":    types.FieldSearchQuery,
}

// CSVAdapter reads postings from a CSV file with a header row.
type CSVAdapter struct {
	Path string
}

func newCSVFromConfig(_ context.Context, cfg *config.Config, _ Deps) (Adapter, error) {
	return &CSVAdapter{Path: cfg.CSVSourcePath}, nil
}

// Kind implements Adapter
func (a *CSVAdapter) Kind() types.SourceKind {
	return types.SourceCSV
}

// Fetch implements Adapter
func (a *CSVAdapter) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceCSV, Message: "failed to open " + a.Path, Cause: err}
	}
	defer func() { _ = f.Close() }()

	records, err := readCSV(ctx, f)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceCSV, Message: "failed to read " + a.Path, Cause: err}
	}
	return records, nil
}

func readCSV(ctx context.Context, r io.Reader) ([]types.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	columns := make([]string, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if field, ok := csvColumnAliases[key]; ok {
			columns[i] = field
		} else {
			// Unknown columns are carried through untouched
			columns[i] = key
		}
	}

	var records []types.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := types.NewRawRecord(types.Source(types.SourceCSV))
		for i, value := range row {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			rec.Set(columns[i], strings.TrimSpace(value))
		}
		records = append(records, rec)
	}
	return records, nil
}
