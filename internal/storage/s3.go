package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"coupon-admin/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// PresignExpiry is how long a presigned upload URL stays valid.
const PresignExpiry = 10 * time.Minute

// S3Options configures the S3 backend.
type S3Options struct {
	Bucket string
	Region string
	// Prefix is prepended to every object key.
	Prefix string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// s3Storage keeps uploads as objects in an S3 bucket.
type s3Storage struct {
	client  objectAPI
	presign presignAPI
	bucket  string
	prefix  string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewS3Storage creates an S3-backed Storage using the default AWS credential chain.
func NewS3Storage(ctx context.Context, opts S3Options, logger zerolog.Logger) (Storage, error) {
	logger = logger.With().Str("component", "s3-storage").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info().
		Str("bucket", opts.Bucket).
		Str("region", opts.Region).
		Str("prefix", opts.Prefix).
		Msg("S3 storage initialised")

	return newS3Storage(client, s3.NewPresignClient(client), opts, logger), nil
}

func newS3Storage(client objectAPI, presign presignAPI, opts S3Options, logger zerolog.Logger) *s3Storage {
	return &s3Storage{
		client:  client,
		presign: presign,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *s3Storage) key(p string) string {
	return s.prefix + p
}

func (s *s3Storage) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	// PutObject needs a seekable body to compute its checksum and length.
	body, ok := r.(io.ReadSeeker)
	if !ok {
		spooled, err := Rewindable(io.NopCloser(r))
		if err != nil {
			return "", err
		}
		defer spooled.Close()
		body = spooled
	}

	p := uniquePath(originalName)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
		Body:   body,
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", s.key(p)).
			Msg("failed to put object to S3")
		return "", model.ErrIOFailure.WithMessage("failed to upload file to S3").Wrap(err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", s.key(p)).
		Msg("upload saved to S3")

	return p, nil
}

func (s *s3Storage) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, model.ErrNotFound.WithMessage(fmt.Sprintf("stored file %s not found", p))
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", s.key(p)).
			Msg("failed to get object from S3")
		return nil, model.ErrIOFailure.WithMessage(
			fmt.Sprintf("failed to get object from S3 (bucket=%s, key=%s)", s.bucket, s.key(p)),
		).Wrap(err)
	}
	return result.Body, nil
}

func (s *s3Storage) PresignUpload(ctx context.Context, fileName, contentType string) (UploadHandle, error) {
	p := uniquePath(fileName)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(p)),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		s.logger.Error().Err(err).Str("key", s.key(p)).Msg("failed to presign upload")
		return UploadHandle{}, model.ErrIOFailure.WithMessage("failed to presign upload").Wrap(err)
	}

	return UploadHandle{
		URL:           req.URL,
		Method:        req.Method,
		SavedFilePath: p,
		ContentType:   contentType,
		ExpiresAt:     s.now().Add(PresignExpiry),
	}, nil
}
