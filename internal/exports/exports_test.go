package exports

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/storage"
	"github.com/articlehub/apiserver/types"
)

type userSource []types.User

func (s userSource) Stream(_ context.Context, _ query.Query, fn func(types.User) error) error {
	for _, u := range s {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

type articleSource struct {
	articles []types.Article
	err      error
}

func (s articleSource) Stream(_ context.Context, _ query.Query, fn func(types.Article) error) error {
	for _, a := range s.articles {
		if err := fn(a); err != nil {
			return err
		}
	}
	return s.err
}

func newExporter(users userSource, articles articleSource) (*Exporter, *storage.MemoryBucket) {
	bucket := storage.NewMemoryBucket("exports-test")
	e := NewExporter(users, articles, bucket, "exports", nil)
	e.now = func() time.Time { return time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC) }
	return e, bucket
}

func TestExportUsersOmitsPasswords(t *testing.T) {
	users := userSource{
		{ID: 1, Name: "Alex Johnson", Email: "alex@example.com", PasswordHash: "$2a$secret", Age: 28, Role: "Developer"},
		{ID: 2, Name: "Maria Garcia", Email: "maria@example.com", PasswordHash: "$2a$secret", Age: 32, Role: "Designer"},
	}
	e, bucket := newExporter(users, articleSource{})

	res, err := e.Export(context.Background(), ResourceUsers, query.Query{})
	require.NoError(t, err)
	assert.Equal(t, "exports/users/20240115T093000Z.ndjson", res.Key)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "application/x-ndjson", bucket.ContentType(res.Key))

	rc, err := bucket.Get(context.Background(), res.Key)
	require.NoError(t, err)
	defer rc.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		assert.NotContains(t, scanner.Text(), "$2a$")
		lines = append(lines, rec)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "maria@example.com", lines[1]["email"])
}

func TestExportArticlesProjects(t *testing.T) {
	articles := articleSource{articles: []types.Article{{ID: 7, Title: "Projected article", Content: "Body text here"}}}
	e, bucket := newExporter(nil, articles)

	res, err := e.Export(context.Background(), ResourceArticles, query.Query{Fields: []string{"id", "title"}})
	require.NoError(t, err)

	rc, err := bucket.Get(context.Background(), res.Key)
	require.NoError(t, err)
	defer rc.Close()
	var rec map[string]any
	require.NoError(t, json.NewDecoder(rc).Decode(&rec))
	assert.Equal(t, map[string]any{"id": float64(7), "title": "Projected article"}, rec)
}

func TestExportSourceFailure(t *testing.T) {
	boom := errors.New("connection reset")
	e, bucket := newExporter(nil, articleSource{err: boom})

	_, err := e.Export(context.Background(), ResourceArticles, query.Query{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, bucket.Keys())
}

func TestExportUnknownResource(t *testing.T) {
	e, _ := newExporter(nil, articleSource{})
	_, err := e.Export(context.Background(), "comments", query.Query{})
	assert.Error(t, err)
}
