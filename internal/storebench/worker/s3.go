package worker

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	"github.com/pkg/errors"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ContainerPrefix string
	UsePathStyle    bool
}

// S3Store runs operations against an S3 compatible endpoint. Containers are buckets.
type S3Store struct {
	client *s3.Client
	prefix string
}

func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")))
	}
	if c.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: c.Endpoint, HostnameImmutable: c.UsePathStyle}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = c.UsePathStyle
	})
	return &S3Store{client: client, prefix: c.ContainerPrefix}, nil
}

// BucketName maps a container to a valid bucket name.
func BucketName(prefix, container string) string {
	return strings.ReplaceAll(strings.ToLower(prefix+container), "_", "-")
}

func (s *S3Store) bucket(container string) *string {
	return aws.String(BucketName(s.prefix, container))
}

func requestID(metadata middleware.Metadata) string {
	id, _ := awsmiddleware.GetRequestIDMetadata(metadata)
	return id
}

func (s *S3Store) CreateContainer(ctx context.Context, container string) (OpResult, error) {
	start := time.Now()
	out, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: s.bucket(container)})
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	elapsed := time.Since(start)
	return OpResult{FirstByte: elapsed, LastByte: elapsed, TransID: requestID(out.ResultMetadata)}, nil
}

func (s *S3Store) DeleteContainer(ctx context.Context, container string) (OpResult, error) {
	start := time.Now()
	out, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: s.bucket(container)})
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	elapsed := time.Since(start)
	return OpResult{FirstByte: elapsed, LastByte: elapsed, TransID: requestID(out.ResultMetadata)}, nil
}

func (s *S3Store) PutObject(ctx context.Context, container, name string, size int64) (OpResult, error) {
	start := time.Now()
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        s.bucket(container),
		Key:           aws.String(name),
		Body:          newPatternReader(size),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	elapsed := time.Since(start)
	return OpResult{FirstByte: elapsed, LastByte: elapsed, TransID: requestID(out.ResultMetadata), Bytes: size}, nil
}

func (s *S3Store) GetObject(ctx context.Context, container, name string) (OpResult, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket(container),
		Key:    aws.String(name),
	})
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	defer out.Body.Close()
	firstByte := time.Since(start)
	n, err := io.Copy(io.Discard, out.Body)
	if err != nil {
		return OpResult{}, errors.Wrap(err, "reading object body")
	}
	return OpResult{FirstByte: firstByte, LastByte: time.Since(start), TransID: requestID(out.ResultMetadata), Bytes: n}, nil
}

func (s *S3Store) DeleteObject(ctx context.Context, container, name string) (OpResult, error) {
	start := time.Now()
	out, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket(container),
		Key:    aws.String(name),
	})
	if err != nil {
		return OpResult{}, errors.WithStack(err)
	}
	elapsed := time.Since(start)
	return OpResult{FirstByte: elapsed, LastByte: elapsed, TransID: requestID(out.ResultMetadata)}, nil
}
