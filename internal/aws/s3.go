package aws

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ObjectArchiver stores JSON documents under a bucket prefix and hands out
// presigned download links for them.
type ObjectArchiver struct {
	client    s3PutAPI
	presigner s3PresignAPI
	bucket    string
	prefix    string
}

// NewS3Client creates a new S3 client from AWS config. Path-style addressing
// keeps LocalStack buckets reachable.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

func NewObjectArchiver(client *s3.Client, bucket, prefix string) *ObjectArchiver {
	a := newObjectArchiver(client, bucket, prefix)
	a.presigner = s3.NewPresignClient(client)
	return a
}

func newObjectArchiver(client s3PutAPI, bucket, prefix string) *ObjectArchiver {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectArchiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key used for name.
func (a *ObjectArchiver) Key(name string) string {
	return a.prefix + name
}

// PutJSON uploads body as application/json under prefix+name.
func (a *ObjectArchiver) PutJSON(ctx context.Context, name string, body []byte) error {
	key := a.Key(name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(a.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: sdkaws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s failed: %w", a.bucket, key, err)
	}
	return nil
}

// PresignGet returns a GET URL for prefix+name valid for expires.
func (a *ObjectArchiver) PresignGet(ctx context.Context, name string, expires time.Duration) (string, error) {
	if a.presigner == nil {
		return "", fmt.Errorf("presigning not configured")
	}
	key := a.Key(name)
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(a.bucket),
		Key:    sdkaws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get %s/%s: %w", a.bucket, key, err)
	}
	return req.URL, nil
}
