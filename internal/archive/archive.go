// Package archive copies a run's report artifacts to S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jonathan/job-digest/internal/report"
)

// PutObjectAPI is the subset of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadError reports the object that could not be written
type UploadError struct {
	Bucket string
	Key    string
	Cause  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("archive upload s3://%s/%s failed: %v", e.Bucket, e.Key, e.Cause)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// Archiver uploads run artifacts under <prefix>/<yyyy>/<mm>/<dd>/<run id>/
type Archiver struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

// New builds an Archiver from the default AWS credential chain
func New(ctx context.Context, bucket, prefix string) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Archiver{Client: s3.NewFromConfig(cfg), Bucket: bucket, Prefix: prefix}, nil
}

// RunPrefix returns the key prefix for a run
func (a *Archiver) RunPrefix(runID string, started time.Time) string {
	parts := []string{}
	if p := strings.Trim(a.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, started.UTC().Format("2006/01/02"), runID)
	return path.Join(parts...)
}

// Upload writes the summary CSV, a JSON digest, and every file in the customized
// output folders. It returns the keys written.
func (a *Archiver) Upload(ctx context.Context, d *report.Digest, csvData []byte) ([]string, error) {
	prefix := a.RunPrefix(d.RunID, d.StartedAt)
	var keys []string

	put := func(key string, body []byte, contentType string) error {
		_, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return &UploadError{Bucket: a.Bucket, Key: key, Cause: err}
		}
		keys = append(keys, key)
		return nil
	}

	if err := put(path.Join(prefix, report.AttachmentName(d.StartedAt)), csvData, "text/csv"); err != nil {
		return keys, err
	}

	digestJSON, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return keys, fmt.Errorf("failed to marshal digest: %w", err)
	}
	if err := put(path.Join(prefix, "digest.json"), digestJSON, "application/json"); err != nil {
		return keys, err
	}

	for i := range d.Results {
		dir := d.Results[i].OutputFolder
		if dir == "" {
			continue
		}
		folder := filepath.Base(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return keys, fmt.Errorf("failed to read output folder %s: %w", folder, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return keys, fmt.Errorf("failed to read %s: %w", e.Name(), err)
			}
			if err := put(path.Join(prefix, "resumes", folder, e.Name()), data, contentTypeFor(e.Name())); err != nil {
				return keys, err
			}
		}
	}
	return keys, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
