package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rainchat/internal/pkg/logx"
)

// s3Archiver implements the Service interface against S3-compatible storage.
type s3Archiver struct {
	cfg      ServiceConfig
	client   *s3.Client
	uploader *manager.Uploader
}

// newS3Archiver initializes the S3 client using a custom configuration that
// supports S3-compatible endpoints.
func newS3Archiver(cfg ServiceConfig) (*s3Archiver, error) {
	sdkCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logx.Error(err, "Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize archive client configuration")
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Archiver{
		cfg:      cfg,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Archive uploads the batch as a single JSON-lines object keyed by room and
// upload timestamp.
func (a *s3Archiver) Archive(ctx context.Context, roomID string, lines [][]byte) error {
	if len(lines) == 0 {
		return nil
	}

	key := fmt.Sprintf("history/%s/%d.jsonl", roomID, time.Now().UnixMilli())
	body := bytes.Join(lines, []byte("\n"))
	contentType := "application/x-ndjson"

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &a.cfg.S3BucketName,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})

	if err != nil {
		logx.Error(err, "Failed to upload history archive", "key", key, "lines", len(lines))
		return errors.New("failed to upload history archive")
	}

	logx.Info("Archived evicted history", "key", key, "lines", len(lines))
	return nil
}
