package backing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by the S3 backing.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 stores each parameter as an object in an AWS S3 bucket.
type S3 struct {
	bucket    string
	namespace string
	client    S3API
}

// S3Args are the arguments for creating a new S3 backing.
type S3Args struct {
	Bucket    string // Required. The name of the S3 bucket to use.
	Namespace string // Required. The namespace prefixed to all parameter names when stored in S3.
	Client    S3API  // Optional. The S3 client to use. If not provided, a client will be automatically configured from your environment.
	Region    string // Optional. Overrides the region from your environment when Client is not provided.
	Endpoint  string // Optional. A custom endpoint, e.g. a local S3 emulator. Implies path-style addressing.
}

// NewS3 creates a new backing which stores parameters in AWS S3.
func NewS3(ctx context.Context, args S3Args) (*S3, error) {
	if args.Bucket == "" {
		return nil, errors.New("S3 backing requires a bucket")
	}
	if args.Namespace == "" {
		return nil, errors.New("S3 backing requires a namespace")
	}
	if args.Client == nil {
		cfg, err := loadAWSConfig(ctx, args.Region)
		if err != nil {
			return nil, err
		}
		args.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if args.Endpoint != "" {
				o.BaseEndpoint = aws.String(args.Endpoint)
				o.UsePathStyle = true
			}
		})
	}
	return &S3{
		client:    args.Client,
		bucket:    args.Bucket,
		namespace: args.Namespace,
	}, nil
}

// ns appends the namespace prefix to the given name.
func (s *S3) ns(name Name) string {
	return fmt.Sprintf("%s/%s", s.namespace, name)
}

// Get returns the value for the given parameter.
func (s *S3) Get(ctx context.Context, name Name) (string, error) {
	r, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ns(name)),
	})
	if notFound(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrap("get", name, err)
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", wrap("get", name, err)
	}
	return string(data), nil
}

// Put sets the value for the given parameter. S3 offers no create-if-absent write here, so without overwrite the
// existence check and the write are two separate requests.
func (s *S3) Put(ctx context.Context, name Name, value string, overwrite bool) error {
	if !overwrite {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.ns(name)),
		})
		if err == nil {
			return ErrAlreadyExists
		}
		if !notFound(err) {
			return wrap("put", name, err)
		}
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ns(name)),
		Body:   bytes.NewReader([]byte(value)),
	})
	return wrap("put", name, err)
}

// notFound checks if an error is an S3 NoSuchKey (GetObject) or NotFound (HeadObject) error.
func notFound(err error) bool {
	var aerr smithy.APIError
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}

// loadAWSConfig loads the shared AWS configuration from the environment, optionally pinning the region.
func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}
