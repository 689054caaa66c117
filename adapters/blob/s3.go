package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"degpredict/domain/core"
	"degpredict/ports"
)

// S3Config holds construction parameters for the S3 driver.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. MinIO
	AccessKeyID     string // optional, falls back to the default credential chain
	SecretAccessKey string
	PathStyle       bool
}

// S3 stores artifacts in a single bucket; keys map to object keys directly.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ ports.ArtifactStore = (*S3)(nil)

// NewS3 creates an S3 store from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3WithClient(client, cfg.Bucket), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client *s3.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Driver returns "s3".
func (s *S3) Driver() string { return DriverS3 }

// Put uploads a new object. Create-only semantics are emulated with a Head
// first. The body is buffered so the SDK can sign a seekable payload.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, opts ports.PutOptions) (ports.ArtifactInfo, error) {
	if _, err := sanitizeKey(key); err != nil {
		return ports.ArtifactInfo{}, err
	}
	if _, err := s.Head(ctx, key); err == nil {
		return ports.ArtifactInfo{}, alreadyExists(key)
	} else if !isNotFound(err) {
		return ports.ArtifactInfo{}, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return ports.ArtifactInfo{}, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = cloneMetadata(opts.Metadata)
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return ports.ArtifactInfo{}, fmt.Errorf("put %s: %w", key, err)
	}
	return ports.ArtifactInfo{
		Key:          key,
		Size:         int64(len(body)),
		ContentType:  opts.ContentType,
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}, nil
}

// Get streams the object body.
func (s *S3) Get(ctx context.Context, key string) (ports.ArtifactInfo, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return ports.ArtifactInfo{}, nil, s.mapError(key, err)
	}
	info := infoFrom(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

// Head returns object metadata.
func (s *S3) Head(ctx context.Context, key string) (ports.ArtifactInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return ports.ArtifactInfo{}, s.mapError(key, err)
	}
	return infoFrom(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete removes the object, reporting whether it existed.
func (s *S3) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// List pages through ListObjectsV2.
func (s *S3) List(ctx context.Context, prefix string) ([]ports.ArtifactInfo, error) {
	var infos []ports.ArtifactInfo
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, ports.ArtifactInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *S3) mapError(key string, err error) error {
	if isHTTPNotFound(err) {
		return notFound(key)
	}
	return fmt.Errorf("s3 %s: %w", key, err)
}

func isHTTPNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrArtifactNotFound)
}

func infoFrom(key string, size *int64, contentType, etag *string, md map[string]string, lastModified *time.Time) ports.ArtifactInfo {
	lm := time.Now().UTC()
	if lastModified != nil {
		lm = *lastModified
	}
	return ports.ArtifactInfo{
		Key:          key,
		Size:         aws.ToInt64(size),
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     md,
		LastModified: lm,
	}
}
