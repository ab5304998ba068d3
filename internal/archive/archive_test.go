package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-digest/internal/report"
	"github.com/jonathan/job-digest/internal/types"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failKey string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failKey != "" && key == f.failKey {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func testDigest(folder string) *report.Digest {
	return &report.Digest{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 10, 18, 7, 30, 0, 0, time.UTC),
		Jobs:      []types.Job{{ID: "aaaaaaaaaaaaaaaa", Title: "Go Engineer", Company: "Acme"}},
		Results: []types.CustomizationResult{
			{JobID: "aaaaaaaaaaaaaaaa", Status: types.StatusSuccess, OutputFolder: folder},
		},
	}
}

func TestRunPrefix(t *testing.T) {
	started := time.Date(2026, 10, 18, 23, 0, 0, 0, time.FixedZone("x", -5*3600))
	tests := []struct {
		prefix string
		want   string
	}{
		{"job-digest", "job-digest/2026/10/19/r1"},
		{"/nested/path/", "nested/path/2026/10/19/r1"},
		{"", "2026/10/19/r1"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			a := &Archiver{Prefix: tt.prefix}
			assert.Equal(t, tt.want, a.RunPrefix("r1", started))
		})
	}
}

func TestUpload(t *testing.T) {
	outDir := t.TempDir()
	folder := filepath.Join(outDir, "Acme - Go Engineer")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "customized_resume.txt"), []byte("resume"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "job_info.json"), []byte("{}"), 0o644))

	client := newFakeS3()
	a := &Archiver{Client: client, Bucket: "bucket", Prefix: "digests"}

	keys, err := a.Upload(context.Background(), testDigest(folder), []byte("id,title\n"))
	require.NoError(t, err)

	base := "digests/2026/10/18/run-1/"
	assert.Equal(t, []string{
		base + "job_listings_20261018_0730.csv",
		base + "digest.json",
		base + "resumes/Acme - Go Engineer/customized_resume.txt",
		base + "resumes/Acme - Go Engineer/job_info.json",
	}, keys)
	assert.Equal(t, []byte("id,title\n"), client.objects["bucket/"+base+"job_listings_20261018_0730.csv"])
	assert.Contains(t, string(client.objects["bucket/"+base+"digest.json"]), `"RunID": "run-1"`)
	assert.Equal(t, "application/json", client.types[base+"resumes/Acme - Go Engineer/job_info.json"])
	assert.Equal(t, "text/csv", client.types[base+"job_listings_20261018_0730.csv"])
}

func TestUpload_Failure(t *testing.T) {
	client := newFakeS3()
	client.failKey = "p/2026/10/18/run-1/digest.json"
	a := &Archiver{Client: client, Bucket: "bucket", Prefix: "p"}

	keys, err := a.Upload(context.Background(), testDigest(""), []byte("x"))
	require.Error(t, err)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "p/2026/10/18/run-1/digest.json", uploadErr.Key)
	assert.Contains(t, err.Error(), "s3://bucket/p/2026/10/18/run-1/digest.json")
	assert.Len(t, keys, 1, "csv was written before the failure")
}

func TestUpload_MissingOutputFolder(t *testing.T) {
	a := &Archiver{Client: newFakeS3(), Bucket: "b"}
	_, err := a.Upload(context.Background(), testDigest(filepath.Join(t.TempDir(), "gone")), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read output folder")
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", contentTypeFor("cover_letter.txt"))
	assert.Equal(t, "application/pdf", contentTypeFor("original_resume.PDF"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("blob"))
}
