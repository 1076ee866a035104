package services

import (
	"bytes"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ArchiveService stores raw webhook payloads in S3-compatible object
// storage. The database keeps only the archive key; the body itself lives
// out of band so the events table stays small under retention cleanup.
type ArchiveService struct {
	s3Client *s3.S3
	bucket   string
}

// NewArchiveService creates a new archive service
func NewArchiveService() (*ArchiveService, error) {
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")
	bucket := os.Getenv("S3_BUCKET")

	if accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("S3 configuration missing")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(getEnvOrDefault("S3_REGION", "us-east-1")),
		Endpoint: aws.String(endpoint),
		Credentials: credentials.NewStaticCredentials(
			accessKey,
			secretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &ArchiveService{
		s3Client: s3.New(sess),
		bucket:   bucket,
	}, nil
}

// ArchivePayload uploads a raw delivery body and returns its S3 key.
// Key layout: merchant_id/webhooks/platform/event_id.json
func (s *ArchiveService) ArchivePayload(merchantID, platform, eventID string, rawBody []byte) (string, error) {
	key := fmt.Sprintf("%s/webhooks/%s/%s.json", merchantID, platform, eventID)

	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(rawBody),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload payload to S3: %w", err)
	}

	return key, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
