package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Gobusters/ectologger"
	"google.golang.org/api/option"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const gcsSinkName = "gcs"

// GCSConfig selects the bucket run outputs are copied to.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// GCSUploader copies output files into a bucket under <prefix>/<run id>/.
type GCSUploader struct {
	client *storage.Client
	cfg    GCSConfig
	logger ectologger.Logger
}

// NewGCSUploader creates a storage client for cfg.Bucket.
func NewGCSUploader(ctx context.Context, cfg GCSConfig, logger ectologger.Logger) (*GCSUploader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSUploader{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (u *GCSUploader) GetName() string     { return "gcs" }
func (u *GCSUploader) DependsOn() []string { return nil }

// Start checks that the bucket exists.
func (u *GCSUploader) Start(ctx context.Context) error {
	if _, err := u.client.Bucket(u.cfg.Bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", u.cfg.Bucket, err)
	}
	return nil
}

func (u *GCSUploader) Stop(_ context.Context) error {
	return u.client.Close()
}

// ObjectName returns the object a local file is uploaded to.
func ObjectName(prefix, runID, file string) string {
	return path.Join(strings.Trim(prefix, "/"), runID, filepath.Base(file))
}

// Upload copies every file to the bucket and returns the gs:// URIs.
func (u *GCSUploader) Upload(ctx context.Context, runID string, files []string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "sink.GCSUploader.Upload")
	defer span.End()

	uris := make([]string, 0, len(files))
	for _, file := range files {
		object := ObjectName(u.cfg.Prefix, runID, file)
		if err := u.upload(ctx, file, object); err != nil {
			metrics.SinkWritesTotal.WithLabelValues(gcsSinkName, "failure").Inc()
			return uris, fmt.Errorf("failed to upload %s: %w", file, err)
		}
		metrics.SinkWritesTotal.WithLabelValues(gcsSinkName, "success").Inc()

		uri := fmt.Sprintf("gs://%s/%s", u.cfg.Bucket, object)
		u.logger.WithContext(ctx).WithField("object", uri).Infof("Uploaded %s", filepath.Base(file))
		uris = append(uris, uri)
	}
	return uris, nil
}

func (u *GCSUploader) upload(ctx context.Context, file, object string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	w := u.client.Bucket(u.cfg.Bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
