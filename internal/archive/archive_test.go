package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/veille/backend/internal/models"
)

type fakeObjects struct {
	puts    map[string]string
	types   map[string]string
	deleted []string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(body)
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func article() models.Article {
	return models.Article{
		ID:        "a1",
		Title:     "Agents",
		Theme:     "autonomous agents",
		Content:   "# Agents\n\nBody\n",
		Tags:      []string{"ai", "llm"},
		CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		SourceReferences: []models.SourceReference{
			{URL: "https://a.example/post", Title: "Post", SourceName: "Blog A"},
		},
	}
}

func TestNewWithoutBucketIsNop(t *testing.T) {
	a, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	require.IsType(t, Nop{}, a)
	require.NoError(t, a.Put(context.Background(), article()))
}

func TestPutWritesMarkdownObject(t *testing.T) {
	objs := &fakeObjects{puts: map[string]string{}, types: map[string]string{}}
	s := newS3(objs, Config{Bucket: "veille", Prefix: "articles/"}, nil)

	require.NoError(t, s.Put(context.Background(), article()))

	body, ok := objs.puts["veille/articles/a1.md"]
	require.True(t, ok)
	require.Contains(t, body, "title: \"Agents\"\n")
	require.Contains(t, body, "tags: [ai, llm]\n")
	require.Contains(t, body, "# Agents\n\nBody\n")
	require.Contains(t, body, "- [Post](https://a.example/post) (Blog A)\n")
	require.Equal(t, contentType, objs.types["articles/a1.md"])

	require.NoError(t, s.Remove(context.Background(), "a1"))
	require.Equal(t, []string{"articles/a1.md"}, objs.deleted)
}

func TestPutWrapsError(t *testing.T) {
	cause := errors.New("access denied")
	s := newS3(&fakeObjects{err: cause}, Config{Bucket: "veille"}, nil)

	err := s.Put(context.Background(), article())
	require.ErrorIs(t, err, cause)
}
