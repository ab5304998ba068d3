package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the column order of the summary CSV
var CSVHeader = []string{
	"source", "title", "company", "location", "posted", "posted_at", "link", "score",
	"quality_tier", "matched_skills", "customization_status", "output_folder", "search_query",
}

// NotSelected is the customization_status of jobs outside the top N
const NotSelected = "not_selected"

// WriteCSV writes one row per surviving job. The header is written even when there are no jobs.
func WriteCSV(w io.Writer, d *Digest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for i := range d.Jobs {
		job := &d.Jobs[i]
		postedAt := ""
		if job.HasPostedAt() {
			postedAt = job.PostedAt.UTC().Format(time.RFC3339)
		}
		status, folder := NotSelected, ""
		if r := d.Result(job.ID); r != nil {
			status = string(r.Status)
			if r.Failed() {
				status += ": " + r.Reason()
			}
			folder = r.OutputFolder
		}
		row := []string{
			string(job.Source),
			job.Title,
			job.Company,
			job.Location,
			job.PostedText,
			postedAt,
			job.URL,
			strconv.Itoa(job.Score),
			string(job.QualityTier),
			strings.Join(job.MatchedSkills, "; "),
			status,
			folder,
			job.SearchQuery,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVBytes renders the summary CSV in memory, for attachments and uploads
func CSVBytes(d *Digest) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSVFile writes the summary CSV to path, creating parent directories
func WriteCSVFile(path string, d *Digest) error {
	data, err := CSVBytes(d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// AttachmentName returns the dated CSV attachment name, job_listings_YYYYMMDD_HHMM.csv
func AttachmentName(t time.Time) string {
	return "job_listings_" + t.Format("20060102_1504") + ".csv"
}
