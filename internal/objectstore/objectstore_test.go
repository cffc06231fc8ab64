package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0644))
	return p
}

func TestS3StoreUpload(t *testing.T) {
	src := writeFile(t, "a.png", pngHeader)
	client := &fakeS3{}
	store := &S3Store{Client: client, Bucket: "images", Prefix: "/crawl/"}

	require.NoError(t, store.Upload(context.Background(), src, "original/trees/oak/0/a.png"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "images", aws.ToString(in.Bucket))
	assert.Equal(t, "crawl/original/trees/oak/0/a.png", aws.ToString(in.Key))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.Equal(t, pngHeader, client.bodies[0])
}

func TestS3StoreKeepsRootKey(t *testing.T) {
	src := writeFile(t, "w.png", pngHeader)
	client := &fakeS3{}
	store := &S3Store{Client: client, Bucket: "images"}

	require.NoError(t, store.Upload(context.Background(), src, "original//0/w.png"))
	assert.Equal(t, "original//0/w.png", aws.ToString(client.inputs[0].Key))
}

func TestS3StoreErrors(t *testing.T) {
	store := &S3Store{Client: &fakeS3{}, Bucket: "images"}
	assert.Error(t, store.Upload(context.Background(), "/nonexistent/a.png", "k"))

	boom := errors.New("boom")
	store = &S3Store{Client: &fakeS3{err: boom}, Bucket: "images"}
	err := store.Upload(context.Background(), writeFile(t, "a.png", pngHeader), "k")
	assert.ErrorIs(t, err, boom)
}

func TestLocalStoreUpload(t *testing.T) {
	src := writeFile(t, "a.gif", []byte("GIF89a"))
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Upload(context.Background(), src, "original/birds/0/a.gif"))

	data, err := os.ReadFile(filepath.Join(store.Root, "original", "birds", "0", "a.gif"))
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)

	require.NoError(t, store.Upload(context.Background(), src, "original//0/a.gif"))
	assert.FileExists(t, filepath.Join(store.Root, "original", "_", "0", "a.gif"))

	require.NoError(t, store.Upload(context.Background(), src, "original/trips/0/holiday..beach.gif"))
	assert.FileExists(t, filepath.Join(store.Root, "original", "trips", "0", "holiday..beach.gif"))

	assert.Error(t, store.Upload(context.Background(), src, "../escape"))
	assert.Error(t, store.Upload(context.Background(), src, "original/../../escape"))
}

func TestLocalStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewLocalStore(t.TempDir())
	err := store.Upload(ctx, writeFile(t, "a.png", pngHeader), "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(writeFile(t, "a.png", pngHeader)))
	assert.Equal(t, "image/gif", ContentType(writeFile(t, "a.gif", []byte("GIF89a\x01\x00\x01\x00"))))
	assert.Equal(t, "application/octet-stream", ContentType("/nonexistent"))
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "k/a", joinKey("", "k/a"))
	assert.Equal(t, "p/q/k", joinKey("/p/q/", "k"))
}

func TestNewMinioStore(t *testing.T) {
	store, err := NewMinioStore(MinioOptions{Endpoint: "localhost:9000", Bucket: "images", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "images", store.bucket)
}
