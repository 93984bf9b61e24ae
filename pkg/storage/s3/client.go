// Package s3 stores listing photos in an S3 compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

type objectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client wraps the bucket operations the photo pipeline needs.
type Client struct {
	objects    objectAPI
	presigner  presignAPI
	bucket     string
	publicBase string
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds an S3 client for the photos bucket from a loaded AWS config.
func NewClient(ctx context.Context, awsCfg aws.Config, cfg config.PhotosConfig, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("photos bucket is required")
	}
	raw := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	c := newClient(raw, awss3.NewPresignClient(raw), bucket, publicBase(cfg, awsCfg.Region))
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "s3 photo storage initialized")
	}
	return c, nil
}

func newClient(objects objectAPI, presigner presignAPI, bucket, publicBase string) *Client {
	return &Client{
		objects:    objects,
		presigner:  presigner,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

// publicBase prefers an explicit CDN base, then a custom endpoint, then the
// virtual-hosted AWS URL.
func publicBase(cfg config.PhotosConfig, region string) string {
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" {
		return base
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// PresignPut returns a URL the browser can PUT the object to until expires.
// A positive size is signed into the request so the upload must match it.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, size int64, expires time.Duration) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("object key is required")
	}
	input := &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	req, err := c.presigner.PresignPutObject(ctx, input, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// Get downloads an object into memory.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.objects.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put uploads body under key with a long-lived cache header.
func (c *Client) Put(ctx context.Context, key, contentType string, body []byte) error {
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.objects.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// PublicURL resolves key to the URL browsers load it from.
func (c *Client) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return c.publicBase + "/" + strings.Join(segments, "/")
}

// Ping checks the bucket is reachable with the current credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.objects.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}
