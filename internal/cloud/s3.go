package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client archives accepted import batches as JSON objects.
type S3Client struct {
	svc    s3API
	bucket string
}

var _ service.Archiver = (*S3Client)(nil)

// NewS3Client creates a new S3 client instance
func NewS3Client(ctx context.Context, region, bucket string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Client{svc: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// BatchKey is the object key of an archived batch:
// imports/<installation>/<yyyy>/<mm>/<batch id>.json, dated by receipt.
func BatchKey(b service.ImportBatch) string {
	return fmt.Sprintf("imports/%d/%s/%s.json", b.InstallationID, b.ReceivedAt.UTC().Format("2006/01"), b.ID)
}

func (c *S3Client) ArchiveBatch(ctx context.Context, batch service.ImportBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal import batch: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(BatchKey(batch)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"installation-id": fmt.Sprintf("%d", batch.InstallationID),
			"uploaded-at":     time.Now().UTC().Format(time.RFC3339),
			"rows":            fmt.Sprintf("%d", len(batch.Rows)),
		},
	}
	if _, err := c.svc.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
