package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    map[string][]byte
	types   map[string]string
	deleted []string
	putErr  error
	headErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{puts: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3Store_Put(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, S3Config{EndpointURL: "http://minio:9000/", Bucket: "condolence-cards"})

	url, err := store.Put(context.Background(), "condolence/1_Ahmad.png", []byte("png"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "http://minio:9000/condolence-cards/condolence/1_Ahmad.png", url)
	require.Equal(t, []byte("png"), fake.puts["condolence/1_Ahmad.png"])
	require.Equal(t, "image/png", fake.types["condolence/1_Ahmad.png"])
}

func TestS3Store_PublicBaseURL(t *testing.T) {
	store := newS3Store(newFakeS3(), S3Config{
		EndpointURL:   "https://project.supabase.co/storage/v1/s3",
		Bucket:        "death-records-images",
		PublicBaseURL: "https://project.supabase.co/storage/v1/object/public/death-records-images",
	})

	url, err := store.Put(context.Background(), "original/1_a.jpg", []byte("jpg"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "https://project.supabase.co/storage/v1/object/public/death-records-images/original/1_a.jpg", url)
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("AccessDenied")
	store := newS3Store(fake, S3Config{EndpointURL: "http://minio:9000", Bucket: "b"})

	_, err := store.Put(context.Background(), "original/1_a.jpg", []byte("x"), "image/jpeg")
	require.ErrorContains(t, err, "AccessDenied")
}

func TestS3Store_DeleteAndPing(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, S3Config{EndpointURL: "http://minio:9000", Bucket: "b"})

	require.NoError(t, store.Delete(context.Background(), "original/1_a.jpg"))
	require.Equal(t, []string{"original/1_a.jpg"}, fake.deleted)

	require.NoError(t, store.Ping(context.Background()))
	fake.headErr = errors.New("no such host")
	require.ErrorContains(t, store.Ping(context.Background()), "no such host")
}

func TestNewS3Store_RequiresConnectionSettings(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{AccessKey: "key", Bucket: "b"})
	require.ErrorIs(t, err, ErrMissingEndpoint)

	_, err = NewS3Store(context.Background(), S3Config{EndpointURL: "http://minio:9000", Bucket: "b"})
	require.ErrorIs(t, err, ErrMissingAccessKey)
}
