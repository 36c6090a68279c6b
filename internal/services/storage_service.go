// internal/services/storage_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/licensehub/license-backend/internal/config"
)

// StorageService exports license reports to S3. Without AWS credentials it
// degrades to a no-op export, which keeps local development working.
type StorageService struct {
	s3Client *s3.S3
	aws      config.AWSConfig
}

type ExportResult struct {
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size"`
	Exported bool   `json:"exported"`
}

func NewStorageService(awsCfg config.AWSConfig) (*StorageService, error) {
	if awsCfg.AccessKeyID == "" {
		return &StorageService{aws: awsCfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(awsCfg.Region),
		Credentials: credentials.NewStaticCredentials(
			awsCfg.AccessKeyID,
			awsCfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		aws:      awsCfg,
	}, nil
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil
}

// ExportReport serializes the report as JSON and uploads it under
// reports/<date>/<uuid>.json.
func (s *StorageService) ExportReport(report *LicenseReport) (*ExportResult, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}

	key := fmt.Sprintf("reports/%s/%s.json",
		report.GeneratedAt.Format("20060102"), uuid.New().String()[:8])

	if s.s3Client == nil {
		return &ExportResult{
			Key:      key,
			Size:     int64(len(payload)),
			Exported: false,
		}, nil
	}

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.aws.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload report to S3: %w", err)
	}

	return &ExportResult{
		Key:      key,
		URL:      fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.aws.S3Bucket, s.aws.Region, key),
		Size:     int64(len(payload)),
		Exported: true,
	}, nil
}

// PresignReport returns a time-limited download link for a previously
// exported report.
func (s *StorageService) PresignReport(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 export is not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.aws.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}
