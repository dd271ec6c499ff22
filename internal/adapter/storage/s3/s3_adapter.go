package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/carhive/listing-service/internal/platform/logger"
)

// ImageStorage materializes base64 data-URI payloads into durable object
// URLs. Payloads that are already URLs are returned unchanged.
type ImageStorage struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewImageStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool, log *logger.Logger) (*ImageStorage, error) {
	log.Info("Initializing MinIO image storage", "endpoint", endpoint, "bucket", bucket, "use_ssl", useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(context.Background(), bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", bucket, err, errBucketExists)
		}
	}

	return &ImageStorage{
		client: client,
		bucket: bucket,
		logger: log,
	}, nil
}

func (s *ImageStorage) Upload(ctx context.Context, payload string) (string, error) {
	// Already-materialized URLs are a no-op.
	if !strings.HasPrefix(payload, "data:") {
		return payload, nil
	}

	contentType, data, err := decodeDataURI(payload)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("cars/%s%s", uuid.New().String(), extensionFor(contentType))
	s.logger.Debug("ImageStorage.Upload: uploading object",
		"bucket", s.bucket, "object_key", objectKey, "size_bytes", len(data))

	_, err = s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("ImageStorage.Upload: PutObject failed", "bucket", s.bucket, "key", objectKey, "error", err.Error())
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, objectKey)
	s.logger.Info("ImageStorage.Upload: object uploaded", "url", url)
	return url, nil
}

// decodeDataURI splits a "data:<mediatype>;base64,<data>" payload into its
// content type and decoded bytes.
func decodeDataURI(payload string) (contentType string, data []byte, err error) {
	rest := strings.TrimPrefix(payload, "data:")
	meta, encoded, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data URI: missing payload separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("malformed data URI: only base64 encoding is supported")
	}
	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("malformed data URI: %w", err)
	}
	return contentType, data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
