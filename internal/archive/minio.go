// Package archive uploads the outcome of completed scans to S3-compatible
// object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/report"
)

// Config locates the bucket scans are archived to.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// objectPutter is the subset of *minio.Client the archiver needs.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioArchiver writes results.json and report.html of each completed scan
// under scans/<id>/.
type MinioArchiver struct {
	client objectPutter
	bucket string
	logger logging.Logger
}

// New connects to the endpoint in cfg and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*MinioArchiver, error) {
	if logger == nil {
		return nil, errors.New("archive: nil logger provided")
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("archive: endpoint and bucket are required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info("archive bucket created", logging.Field{Key: "bucket", Value: cfg.Bucket})
	}

	return newArchiver(cli, cfg.Bucket, logger), nil
}

func newArchiver(client objectPutter, bucket string, logger logging.Logger) *MinioArchiver {
	return &MinioArchiver{client: client, bucket: bucket, logger: logger}
}

// ResultsKey is the object key of a scan's results payload.
func ResultsKey(id model.ScanID) string { return "scans/" + id.String() + "/results.json" }

// ReportKey is the object key of a scan's HTML report.
func ReportKey(id model.ScanID) string { return "scans/" + id.String() + "/report.html" }

// Archive uploads the results payload and HTML report of rec.
func (a *MinioArchiver) Archive(ctx context.Context, rec *model.ScanRecord) error {
	if !rec.Complete() {
		return fmt.Errorf("archive: scan %s is not complete", rec.ID)
	}

	results, err := json.Marshal(report.BuildResults(rec))
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	html, err := report.RenderHTML(rec)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := a.put(ctx, ResultsKey(rec.ID), results, "application/json"); err != nil {
		return err
	}
	if err := a.put(ctx, ReportKey(rec.ID), html, "text/html"); err != nil {
		return err
	}

	a.logger.Info("scan archived",
		logging.Field{Key: "scan_id", Value: rec.ID},
		logging.Field{Key: "bucket", Value: a.bucket},
	)
	return nil
}

func (a *MinioArchiver) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
