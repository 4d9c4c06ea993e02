package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects   map[string][]byte
	modified  map[string]time.Time
	failKey   string
	putTypes  map[string]string
	pageLimit int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:   map[string][]byte{},
		modified:  map[string]time.Time{},
		putTypes:  map[string]string{},
		pageLimit: 2,
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.putTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

// ListObjectsV2 pages through keys in lexical order, pageLimit at a time.
func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.modified {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
				break
			}
		}
	}
	end := start + f.pageLimit
	out := &s3.ListObjectsV2Output{}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
		out.IsTruncated = aws.Bool(false)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: aws.Time(f.modified[k])})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	delete(f.modified, key)
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestObjectStorePut(t *testing.T) {
	fake := newFakeS3()
	store := newObjectStore(fake, "media", "https://s3.example.net/")

	link, err := store.Put(context.Background(), "news-images/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.net/media/news-images/a.png", link)
	assert.Equal(t, []byte("png"), fake.objects["news-images/a.png"])
	assert.Equal(t, "image/png", fake.putTypes["news-images/a.png"])

	bare := newObjectStore(fake, "media", "")
	assert.Equal(t, "s3://media/x", bare.Link("x"))
}

func TestObjectStorePrune(t *testing.T) {
	fake := newFakeS3()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, k := range []string{"backups/a", "backups/b", "backups/c", "backups/d", "backups/e"} {
		fake.modified[k] = base.Add(time.Duration(i) * time.Hour)
	}
	store := newObjectStore(fake, "media", "")

	deleted, err := store.Prune(context.Background(), "backups/", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backups/a", "backups/b", "backups/c"}, deleted)
	assert.Len(t, fake.modified, 2)
	assert.Contains(t, fake.modified, "backups/e")
	assert.Contains(t, fake.modified, "backups/d")
}

func TestObjectStorePruneNothingToDo(t *testing.T) {
	fake := newFakeS3()
	fake.modified["backups/a"] = time.Now()
	store := newObjectStore(fake, "media", "")

	deleted, err := store.Prune(context.Background(), "backups/", 4)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestObjectStorePruneReportsFailures(t *testing.T) {
	fake := newFakeS3()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fake.modified["backups/old"] = base
	fake.modified["backups/older"] = base.Add(-time.Hour)
	fake.modified["backups/new"] = base.Add(time.Hour)
	fake.failKey = "backups/older"
	store := newObjectStore(fake, "media", "")

	deleted, err := store.Prune(context.Background(), "backups/", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backups/older")
	assert.Equal(t, []string{"backups/old"}, deleted)
}
