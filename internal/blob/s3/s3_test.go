package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstructure/internal/blob"
)

type fakeAPI struct {
	objects map[string]string
	putErr  error
	pages   [][]types.Object
}

func (f *fakeAPI) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = string(body)
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	delete(f.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	i := 0
	if in.ContinuationToken != nil {
		i = len(aws.ToString(in.ContinuationToken))
	}
	out := &awss3.ListObjectsV2Output{Contents: f.pages[i]}
	if i+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strings.Repeat("x", i+1))
	}
	return out, nil
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{objects: map[string]string{}}
	store := NewWithClient(api, "bucket")

	require.NoError(t, store.Save(ctx, "staff/1/photo_a.png", strings.NewReader("img")))
	rc, err := store.Open(ctx, "staff/1/photo_a.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "img", string(body))

	require.NoError(t, store.Delete(ctx, "staff/1/photo_a.png"))
	_, err = store.Open(ctx, "staff/1/photo_a.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "staff/1/photo_a.png"))
}

func TestSaveErrorsAndInvalidKeys(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("throttled")
	store := NewWithClient(&fakeAPI{objects: map[string]string{}, putErr: boom}, "bucket")
	assert.ErrorIs(t, store.Save(ctx, "a", strings.NewReader("x")), boom)
	assert.Error(t, store.Save(ctx, "../a", strings.NewReader("x")))
}

func TestListFollowsPages(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]types.Object{
		{{Key: aws.String("staff/1/a"), Size: aws.Int64(1), LastModified: aws.Time(now)}},
		{{Key: aws.String("staff/2/b"), Size: aws.Int64(2), LastModified: aws.Time(now)}},
	}}
	objs, err := NewWithClient(api, "bucket").List(context.Background(), "staff/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "staff/2/b", objs[1].Key)
	assert.EqualValues(t, 2, objs[1].Size)
	assert.Equal(t, now, objs[0].ModTime)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}
