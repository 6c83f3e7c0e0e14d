// Package archive uploads run ledgers to S3-compatible object storage
// (AWS S3, MinIO, Cloudflare R2, iDrive e2).
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/pairlab/internal/modules/ledger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds the object store connection. An empty Bucket disables archiving.
type Config struct {
	// Endpoint is an S3-compatible endpoint URL; empty means AWS S3
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	Prefix         string
	ForcePathStyle bool
}

// Enabled reports whether a bucket is configured
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// uploader is the subset of manager.Uploader used here
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes the Excel ledger of each run to the bucket
type S3Archiver struct {
	uploader uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// New creates an archiver from static credentials
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("archive: region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newArchiver(manager.NewUploader(s3.NewFromConfig(awsCfg, opts...)), cfg, log), nil
}

func newArchiver(u uploader, cfg Config, log zerolog.Logger) *S3Archiver {
	return &S3Archiver{
		uploader: u,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		log:      log.With().Str("component", "archive").Str("bucket", cfg.Bucket).Logger(),
	}
}

// ArchiveRun uploads the run's Excel ledger and returns the object key
func (a *S3Archiver) ArchiveRun(ctx context.Context, run *ledger.Run) (string, error) {
	var buf bytes.Buffer
	if err := ledger.ExportExcel(run, &buf); err != nil {
		return "", fmt.Errorf("archive: export run %s: %w", run.ID, err)
	}

	key := ObjectKey(a.prefix, run)
	size := buf.Len()
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        &buf,
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: upload %s: %w", key, err)
	}

	a.log.Info().Str("key", key).Int("bytes", size).Msg("Archived run ledger")
	return key, nil
}

// ObjectKey returns <prefix>/runs/YYYY/MM/<id>_<A>_<B>.xlsx, dated by run creation
func ObjectKey(prefix string, run *ledger.Run) string {
	name := fmt.Sprintf("%s_%s_%s.xlsx", run.ID, run.SymbolA, run.SymbolB)
	return path.Join(prefix, "runs", run.CreatedAt.UTC().Format("2006/01"), name)
}

// normaliseEndpoint adds https:// to an endpoint given without a scheme
func normaliseEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
