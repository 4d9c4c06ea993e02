package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Settings describes an S3-compatible bucket.
type S3Settings struct {
	Endpoint string
	Region   string
	Key      string
	Secret   string
	Bucket   string
}

// objectAPI is the subset of *s3.Client the object store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore keeps submitted images and database backups in a bucket.
type ObjectStore struct {
	client   objectAPI
	bucket   string
	endpoint string
}

// NewObjectStore creates an S3 client for the given bucket. A custom endpoint switches to
// path-style addressing, which most S3-compatible providers require.
func NewObjectStore(ctx context.Context, s S3Settings) (*ObjectStore, error) {
	if s.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.Key, s.Secret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newObjectStore(client, s.Bucket, s.Endpoint), nil
}

func newObjectStore(client objectAPI, bucket, endpoint string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, endpoint: strings.TrimRight(endpoint, "/")}
}

// Put uploads data under key and returns the object's link.
func (o *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := o.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return o.Link(key), nil
}

// Link returns the public URL of key.
func (o *ObjectStore) Link(key string) string {
	if o.endpoint == "" {
		return fmt.Sprintf("s3://%s/%s", o.bucket, key)
	}
	return fmt.Sprintf("%s/%s/%s", o.endpoint, o.bucket, key)
}

// Prune keeps the newest keep objects under prefix and deletes the rest.
// It returns the deleted keys. Individual delete failures are joined into the error.
func (o *ObjectStore) Prune(ctx context.Context, prefix string, keep int) ([]string, error) {
	var objects []types.Object
	p := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		objects = append(objects, page.Contents...)
	}

	if len(objects) <= keep {
		return nil, nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	var (
		deleted []string
		errs    []error
	)
	for _, obj := range objects[keep:] {
		_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", aws.ToString(obj.Key), err))
			continue
		}
		deleted = append(deleted, aws.ToString(obj.Key))
	}
	return deleted, errors.Join(errs...)
}
