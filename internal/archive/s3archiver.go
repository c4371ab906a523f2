// Package archive offloads large delivery response bodies to S3-compatible
// object storage, keyed by delivery_log.archive_key (internal/store/pg's
// migration reserves that column for exactly this). The teacher's go.mod
// already pins the AWS SDK v2 S3 stack; this package is its first consumer.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// maxInlineBodyBytes is the delivery-body size above which the Worker should
// archive the response rather than inline it into delivery_log.body_excerpt.
const maxInlineBodyBytes = 4 * 1024

// Archiver uploads oversized delivery response bodies and returns the key
// under which they were stored.
type Archiver struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// New builds an Archiver from the standard AWS SDK v2 config chain (env vars,
// shared config, EC2/ECS instance role). bucket is the S3 bucket delivery
// bodies are archived into.
func New(ctx context.Context, bucket string) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Archiver{client: client, uploader: manager.NewUploader(client), bucket: bucket}, nil
}

// ShouldArchive reports whether a delivery body is large enough to warrant
// archival instead of inline storage.
func ShouldArchive(body []byte) bool {
	return len(body) > maxInlineBodyBytes
}

// Archive uploads body under a key derived from the job and delivery attempt
// and returns that key for storage in delivery_log.archive_key.
func (a *Archiver) Archive(ctx context.Context, jobID uuid.UUID, attemptedAt time.Time, body []byte) (string, error) {
	key := fmt.Sprintf("deliveries/%s/%d.json", jobID, attemptedAt.UnixNano())

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload delivery body: %w", err)
	}
	return key, nil
}

// Fetch retrieves a previously archived delivery body, for the operator
// surface that wants to inspect a dead-lettered job's full response.
func (a *Archiver) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get archived delivery body: %w", err)
	}
	defer out.Body.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("read archived delivery body: %w", err)
	}
	return buf.Bytes(), nil
}
