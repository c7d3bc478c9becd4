package archive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 uploads report files under a key prefix in an S3-compatible bucket
// (AWS S3 or MinIO).
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config holds explicit construction parameters. Credentials come from
// the default AWS chain.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional; enables a custom endpoint such as MinIO
	PathStyle bool
}

// NewS3 creates an S3 archive publisher.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *S3) Describe() string { return "s3 archive " + path.Join(s.bucket, s.prefix) }

// Publish uploads every regular file of the output directory under one
// timestamped key prefix.
func (s *S3) Publish(ctx context.Context, outDir string) error {
	base := path.Join(s.prefix, snapshotName(outDir))

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := s.putFile(ctx, filepath.Join(outDir, e.Name()), path.Join(base, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3) putFile(ctx context.Context, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: f}
	if ct := mime.TypeByExtension(filepath.Ext(src)); ct != "" {
		input.ContentType = &ct
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
