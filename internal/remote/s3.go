package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	vc "github.com/dmitrijs2005/credvault/internal/config"
)

// s3API is the part of *s3.Client the storage uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// test seams
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) (s3API, presignAPI) {
		c := s3.NewFromConfig(cfg, optFns...)
		return c, s3.NewPresignClient(c)
	}

	now = time.Now
)

// S3Storage is a Storage backed by one bucket.
type S3Storage struct {
	client  s3API
	presign presignAPI
	bucket  string
	prefix  string
}

// Connect builds a client for cfg with static credentials and verifies
// them against the bucket.
func Connect(ctx context.Context, cfg vc.Remote, creds Credentials) (*S3Storage, error) {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client, presign := newS3Client(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	s := &S3Storage{
		client:  client,
		presign: presign,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		if isStatus(err, http.StatusForbidden, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return s, nil
}

// List returns the objects under the configured prefix, newest first.
func (s *S3Storage) List(ctx context.Context) ([]Object, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		in.Prefix = aws.String(s.prefix + "/")
	}

	var out []Object
	p := s3.NewListObjectsV2Paginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, o := range page.Contents {
			out = append(out, Object{
				Key:      aws.ToString(o.Key),
				Size:     aws.ToInt64(o.Size),
				Modified: aws.ToTime(o.LastModified),
			})
		}
	}

	slices.SortStableFunc(out, func(a, b Object) int {
		return b.Modified.Compare(a.Modified)
	})
	return out, nil
}

// Upload stores r under a fresh key ending in the base name of name and
// returns that key.
func (s *S3Storage) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	key := s.storageKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// Download copies the object at key into w.
func (s *S3Storage) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) || isStatus(err, http.StatusNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, fmt.Errorf("read object: %w", err)
	}
	return n, nil
}

// Link returns a presigned GET URL for key valid for ttl.
func (s *S3Storage) Link(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}

func (s *S3Storage) storageKey(name string) string {
	d := now()
	return path.Join(
		s.prefix,
		fmt.Sprintf("%d/%d/%d", d.Year(), d.Month(), d.Day()),
		uuid.NewString(),
		filepath.Base(name),
	)
}

func isStatus(err error, codes ...int) bool {
	var re *awshttp.ResponseError
	if !errors.As(err, &re) {
		return false
	}
	return slices.Contains(codes, re.HTTPStatusCode())
}

var _ Storage = (*S3Storage)(nil)
