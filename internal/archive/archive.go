// Package archive exports compiled articles as markdown objects to S3.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/models"
)

const contentType = "text/markdown; charset=utf-8"

// Archiver keeps a copy of every compiled article outside the primary store.
type Archiver interface {
	Put(ctx context.Context, a models.Article) error
	Remove(ctx context.Context, id string) error
}

// Nop archives nothing. It is used when no bucket is configured.
type Nop struct{}

func (Nop) Put(context.Context, models.Article) error { return nil }
func (Nop) Remove(context.Context, string) error      { return nil }

// Config selects the bucket and client options.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	UsePathStyle bool
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 writes "<prefix><id>.md" objects.
type S3 struct {
	client objectAPI
	bucket string
	prefix string
	log    *slog.Logger
}

// New returns an S3 archiver, or Nop when cfg.Bucket is empty.
// Credentials come from the default AWS chain.
func New(ctx context.Context, cfg Config, log *slog.Logger) (Archiver, error) {
	if cfg.Bucket == "" {
		return Nop{}, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3(client, cfg, log), nil
}

func newS3(client objectAPI, cfg Config, log *slog.Logger) *S3 {
	if log == nil {
		log = logger.Discard()
	}
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}
}

func (s *S3) key(id string) string {
	return s.prefix + id + ".md"
}

func (s *S3) Put(ctx context.Context, a models.Article) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(a.ID)),
		Body:        strings.NewReader(Render(a)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put article %s: %w", a.ID, err)
	}
	s.log.Info("article archived", slog.String("bucket", s.bucket), slog.String("key", s.key(a.ID)))
	return nil
}

func (s *S3) Remove(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete article %s: %w", id, err)
	}
	return nil
}

// Render formats an article as a standalone markdown document.
func Render(a models.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "---\nid: %s\ntitle: %q\ntheme: %q\ncreated_at: %s\n", a.ID, a.Title, a.Theme, a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	if len(a.Tags) > 0 {
		fmt.Fprintf(&sb, "tags: [%s]\n", strings.Join(a.Tags, ", "))
	}
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimSpace(a.Content))
	sb.WriteString("\n")

	if len(a.SourceReferences) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, ref := range a.SourceReferences {
			fmt.Fprintf(&sb, "- [%s](%s) (%s)\n", ref.Title, ref.URL, ref.SourceName)
		}
	}
	return sb.String()
}
