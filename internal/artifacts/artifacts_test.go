package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	bucket, key, contentType string
	length                   int64
	body                     []byte
}

type fakeS3 struct {
	uploads []upload
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.uploads = append(f.uploads, upload{
		bucket:      *in.Bucket,
		key:         *in.Key,
		contentType: *in.ContentType,
		length:      *in.ContentLength,
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func TestPut(t *testing.T) {
	client := &fakeS3{}
	store := New(client, "plans-bucket", "https://cdn.example.com/")

	obj, err := store.Put(context.Background(), PlanKey("01J"), "application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, Object{Key: "plans/01J.json", URL: "https://cdn.example.com/plans/01J.json", Size: 7}, obj)

	require.Len(t, client.uploads, 1)
	up := client.uploads[0]
	assert.Equal(t, "plans-bucket", up.bucket)
	assert.Equal(t, "application/json", up.contentType)
	assert.Equal(t, int64(7), up.length)
	assert.Equal(t, `{"a":1}`, string(up.body))
}

func TestPutError(t *testing.T) {
	store := New(&fakeS3{err: errors.New("denied")}, "b", "")
	_, err := store.Put(context.Background(), "k", "text/plain", nil)
	assert.ErrorContains(t, err, "upload k to s3: denied")
}

func TestURLWithoutBase(t *testing.T) {
	assert.Equal(t, "s3://b/images/x.png", New(nil, "b", "").URL(ImageKey("x")))
	assert.Equal(t, "audio/x.mp3", AudioKey("x", "mp3"))
}

func TestPublishDir(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"plan.json":     "{}",
		"hook.png":      "png",
		"segment-1.pcm": "pcm",
		".DS_Store":     "x",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	client := &fakeS3{}
	objs, err := New(client, "b", "https://cdn").PublishDir(context.Background(), "runs/r1", dir)
	require.NoError(t, err)
	require.Len(t, objs, 3)

	assert.Equal(t, "runs/r1/hook.png", objs[0].Key)
	assert.Equal(t, "runs/r1/plan.json", objs[1].Key)
	assert.Equal(t, "runs/r1/segment-1.pcm", objs[2].Key)
	assert.Equal(t, "image/png", client.uploads[0].contentType)
	assert.Equal(t, "application/json", client.uploads[1].contentType)
	assert.Equal(t, PCMContentType, client.uploads[2].contentType)
	assert.Equal(t, int64(3), objs[2].Size)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType("voiceover.MP3"))
	assert.Equal(t, "application/octet-stream", ContentType("blob"))
}
