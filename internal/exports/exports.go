// Package exports dumps users or articles as newline-delimited JSON into an
// object store bucket.
package exports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/storage"
	"github.com/articlehub/apiserver/types"
)

const contentType = "application/x-ndjson"

const (
	ResourceUsers    = "users"
	ResourceArticles = "articles"
)

type UserSource interface {
	Stream(ctx context.Context, q query.Query, fn func(types.User) error) error
}

type ArticleSource interface {
	Stream(ctx context.Context, q query.Query, fn func(types.Article) error) error
}

// Result describes a finished export.
type Result struct {
	Bucket string
	Key    string
	Count  int
}

type Exporter struct {
	users    UserSource
	articles ArticleSource
	bucket   storage.Bucket
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewExporter(users UserSource, articles ArticleSource, bucket storage.Bucket, prefix string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		users:    users,
		articles: articles,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
		now:      time.Now,
	}
}

// Key returns the object key for an export of resource started at t.
func (e *Exporter) Key(resource string, t time.Time) string {
	return path.Join(e.prefix, resource, t.UTC().Format("20060102T150405Z")+".ndjson")
}

// Export streams every record of resource matching q into a new object.
// Users are written as public profiles and never include password hashes.
func (e *Exporter) Export(ctx context.Context, resource string, q query.Query) (Result, error) {
	var produce func(ctx context.Context, enc *json.Encoder) (int, error)
	switch resource {
	case ResourceUsers:
		produce = func(ctx context.Context, enc *json.Encoder) (int, error) {
			n := 0
			err := e.users.Stream(ctx, q, func(u types.User) error {
				n++
				return enc.Encode(query.Project(u.Profile(), q.Fields))
			})
			return n, err
		}
	case ResourceArticles:
		produce = func(ctx context.Context, enc *json.Encoder) (int, error) {
			n := 0
			err := e.articles.Stream(ctx, q, func(a types.Article) error {
				n++
				return enc.Encode(query.Project(a.Public(), q.Fields))
			})
			return n, err
		}
	default:
		return Result{}, fmt.Errorf("unknown export resource %q", resource)
	}

	if err := e.bucket.EnsureBucket(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure bucket: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	key := e.Key(resource, e.now())
	pr, pw := io.Pipe()
	counted := make(chan int, 1)
	go func() {
		n, err := produce(ctx, json.NewEncoder(pw))
		counted <- n
		_ = pw.CloseWithError(err)
	}()

	if err := e.bucket.Put(ctx, key, pr, storage.UnknownSize, contentType); err != nil {
		cancel()
		_ = pr.CloseWithError(err)
		<-counted
		return Result{}, fmt.Errorf("upload %s: %w", key, err)
	}
	n := <-counted

	e.logger.Info("export finished",
		zap.String("resource", resource),
		zap.String("bucket", e.bucket.Name()),
		zap.String("key", key),
		zap.Int("records", n),
	)
	return Result{Bucket: e.bucket.Name(), Key: key, Count: n}, nil
}
