package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// S3Config holds the settings for an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	KeyPrefix string
	AccessKey string
	SecretKey string
}

// S3Store keeps uploads in an S3 bucket. Object keys are the stored path
// under KeyPrefix.
type S3Store struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Session builds an AWS session for cfg. Static credentials are used
// when both keys are set, otherwise the default provider chain applies.
func NewS3Session(cfg S3Config) (*session.Session, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sess, nil
}

// NewS3Store creates a store backed by client.
func NewS3Store(client s3iface.S3API, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
		logger: logger.With().Str("component", "s3_store").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return Prefix + key
	}
	return path.Join(s.prefix, Prefix+key)
}

// Save uploads the content as a new object.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name = SanitizeName(name)

	// PutObject needs a seekable body for signing and retries.
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload %s: %w", name, err)
	}

	key := s.objectKey(name)
	exists, err := s.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("object %s: %w", key, fs.ErrExist)
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(detectContentType(name, body)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("upload stored")
	return Prefix + name, nil
}

func (s *S3Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isMissing(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to head object %s: %w", key, err)
}

func isMissing(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound")
}

// Open downloads the object for a stored path.
func (s *S3Store) Open(ctx context.Context, relPath string) ([]byte, error) {
	rel, err := keyFor(relPath)
	if err != nil {
		return nil, err
	}
	key := s.objectKey(rel)

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return nil, domain.NewNotFoundError("object", relPath)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
