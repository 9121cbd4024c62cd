package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/report"
	"github.com/raysh454/spectra/internal/testutil"
)

type putCall struct {
	bucket      string
	key         string
	body        string
	contentType string
}

type fakePutter struct {
	mu    sync.Mutex
	err   error
	calls []putCall
}

func (f *fakePutter) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(b)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, putCall{bucket: bucket, key: key, body: string(b), contentType: opts.ContentType})
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func completedScan() *model.ScanRecord {
	return &model.ScanRecord{
		ID:       model.NewScanID(),
		Status:   model.StatusComplete,
		Stage:    "Analysis complete",
		ScanDate: 1700000000,
		Results: []model.Defect{
			{ID: "DEF001", Type: "Dust Particle", X: 20, Y: 30, Width: 4, Height: 4, Confidence: 0.91, Severity: model.SeverityHigh},
		},
	}
}

func TestKeys(t *testing.T) {
	id := model.ScanID("0b9c3c4e-8a5e-4a59-9f8f-5b1a2f0d6e11")
	assert.Equal(t, "scans/0b9c3c4e-8a5e-4a59-9f8f-5b1a2f0d6e11/results.json", ResultsKey(id))
	assert.Equal(t, "scans/0b9c3c4e-8a5e-4a59-9f8f-5b1a2f0d6e11/report.html", ReportKey(id))
}

func TestArchive_UploadsResultsAndReport(t *testing.T) {
	fake := &fakePutter{}
	a := newArchiver(fake, "scans-bucket", &testutil.DummyLogger{})
	rec := completedScan()

	require.NoError(t, a.Archive(context.Background(), rec))
	require.Len(t, fake.calls, 2)

	results := fake.calls[0]
	assert.Equal(t, "scans-bucket", results.bucket)
	assert.Equal(t, ResultsKey(rec.ID), results.key)
	assert.Equal(t, "application/json", results.contentType)

	var payload report.Results
	require.NoError(t, json.Unmarshal([]byte(results.body), &payload))
	assert.Equal(t, model.StatusComplete, payload.Status)
	assert.Equal(t, report.QualityRequiresReview, payload.Summary.QualityStatus)
	assert.Equal(t, "91.0%", payload.Summary.AvgConfidence)

	html := fake.calls[1]
	assert.Equal(t, ReportKey(rec.ID), html.key)
	assert.Equal(t, "text/html", html.contentType)
	assert.True(t, strings.Contains(html.body, "Scan Report: "+rec.ID.String()))
}

func TestArchive_RejectsIncompleteScans(t *testing.T) {
	fake := &fakePutter{}
	a := newArchiver(fake, "b", &testutil.DummyLogger{})

	rec := completedScan()
	rec.Status = model.StatusProcessing
	assert.Error(t, a.Archive(context.Background(), rec))
	assert.Empty(t, fake.calls)
}

func TestArchive_PropagatesUploadErrors(t *testing.T) {
	fake := &fakePutter{err: errors.New("connection refused")}
	a := newArchiver(fake, "b", &testutil.DummyLogger{})

	err := a.Archive(context.Background(), completedScan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results.json")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "b"}, &testutil.DummyLogger{})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{Endpoint: "localhost:9000", Bucket: "b"}, nil)
	assert.Error(t, err)
}
