// utils/media.go
package utils

import (
	"bytes"
	"context"
	"fmt"

	cfgpkg "ecolearn-engine/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Media store for proof artifacts. The engine only keeps the returned
// locator and a fingerprint; the bytes live in R2/S3 (or on local disk
// for development). Both backends honor the same contract.

var (
	mediaBackend string
	s3Client     *s3.Client
	s3Bucket     string
	mediaBaseURL string
)

func InitMediaStore(cfg cfgpkg.EnvConfig) error {
	mediaBackend = cfg.MediaBackend
	mediaBaseURL = cfg.MediaBaseURL

	switch mediaBackend {
	case "local":
		if mediaBaseURL == "" {
			mediaBaseURL = "/uploads"
		}
		return EnsureUploadDir()
	case "s3":
		s3Bucket = cfg.S3Bucket
		if mediaBaseURL == "" {
			mediaBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.S3AccountID)
		}
		endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.S3AccountID)
		awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion("auto"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKeyID, cfg.S3AccessSecret, "",
			)),
			awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(
				func(service, region string) (aws.Endpoint, error) {
					return aws.Endpoint{URL: endpoint}, nil
				}),
			),
		)
		if err != nil {
			return fmt.Errorf("failed to load media store config: %w", err)
		}
		s3Client = s3.NewFromConfig(awsCfg)
		return nil
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q (want s3 or local)", mediaBackend)
	}
}

// MediaBackendName identifies the active backend for /health.
func MediaBackendName() string { return mediaBackend }

// StoreProof durably stores proof bytes under key and returns a
// retrievable locator.
func StoreProof(ctx context.Context, data []byte, key, contentType string) (string, error) {
	switch mediaBackend {
	case "local":
		if err := SaveBytes(data, GetUploadPath(key)); err != nil {
			return "", fmt.Errorf("failed to save proof locally: %w", err)
		}
	case "s3":
		_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s3Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload proof: %w", err)
		}
	default:
		return "", fmt.Errorf("media store not initialized")
	}
	return fmt.Sprintf("%s/%s", mediaBaseURL, key), nil
}
