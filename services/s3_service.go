package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"bookreview_server/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used for asset cleanup.
type S3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of s3.PresignClient used for upload and read URLs.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedURL, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedURL, error)
}

// PresignedURL is a presigned request URL.
type PresignedURL struct {
	URL string
}

type s3Presigner struct {
	client *s3.PresignClient
}

func (p s3Presigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedURL, error) {
	req, err := p.client.PresignPutObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedURL{URL: req.URL}, nil
}

func (p s3Presigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedURL, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedURL{URL: req.URL}, nil
}

// AssetService manages book cover objects in S3. Objects are always
// addressed by the key stored on the entry.
type AssetService struct {
	Client    S3API
	Presigner Presigner
	Bucket    string
	Prefix    string
	TTL       time.Duration
}

// NewS3Client builds an S3 client for region, optionally against a custom
// endpoint such as LocalStack.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewAssetService wires an AssetService to a real S3 client.
func NewAssetService(client *s3.Client, bucket, prefix string, ttl time.Duration) *AssetService {
	return &AssetService{
		Client:    client,
		Presigner: s3Presigner{client: s3.NewPresignClient(client)},
		Bucket:    bucket,
		Prefix:    prefix,
		TTL:       ttl,
	}
}

// GenerateUploadURL returns a presigned PUT URL and the key the object will
// be stored under. The key is what gets saved on the entry.
func (s *AssetService) GenerateUploadURL(ctx context.Context, fileName, fileType string) (string, string, error) {
	const op = "presign upload"
	name := path.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" {
		return "", "", invalid(op, "file name is required")
	}
	if strings.TrimSpace(fileType) == "" {
		return "", "", invalid(op, "file type is required")
	}

	key := s.Prefix + time.Now().UTC().Format("20060102150405") + "-" + uuid.NewString()[:8] + "-" + name
	req, err := s.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(s.ttl()))
	if err != nil {
		return "", "", internal(op, err)
	}
	return req.URL, key, nil
}

// GenerateReadURL returns a presigned GET URL for key.
func (s *AssetService) GenerateReadURL(ctx context.Context, key string) (string, error) {
	const op = "presign read"
	if strings.TrimSpace(key) == "" {
		return "", invalid(op, "key is required")
	}
	req, err := s.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl()))
	if err != nil {
		return "", internal(op, err)
	}
	return req.URL, nil
}

// Delete removes the object stored under key. An empty key is a no-op.
func (s *AssetService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return internal("delete asset", err)
	}
	logging.Ctx(ctx).Info().Str("key", key).Msg("asset deleted")
	return nil
}

func (s *AssetService) ttl() time.Duration {
	if s.TTL <= 0 {
		return 5 * time.Minute
	}
	return s.TTL
}
