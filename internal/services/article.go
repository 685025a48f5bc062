package services

import (
	"context"
	"strings"
	"time"

	"github.com/articlehub/apiserver/internal/events"
	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/validation"
	"github.com/articlehub/apiserver/types"
)

// ArticleRepository defines persistence operations for articles.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (types.Article, error)
	IncrementViews(ctx context.Context, id int64) (types.Article, error)
	Create(ctx context.Context, article types.Article) (types.Article, error)
	List(ctx context.Context, q query.Query) ([]types.Article, error)
	Count(ctx context.Context, filters []query.Predicate) (int64, error)
	Stream(ctx context.Context, q query.Query, fn func(types.Article) error) error
	Update(ctx context.Context, article types.Article) (types.Article, error)
	Patch(ctx context.Context, id int64, set map[string]any) (types.Article, error)
	Delete(ctx context.Context, id int64) error
	UpdateMany(ctx context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error)
	DeleteMany(ctx context.Context, filters []query.Predicate) (int64, error)
	Stats(ctx context.Context) (types.ArticleStats, error)
}

// ArticleService encapsulates article use-cases.
type ArticleService struct {
	repo   ArticleRepository
	events EventPublisher
	now    func() time.Time
}

func NewArticleService(repo ArticleRepository, events EventPublisher) *ArticleService {
	return &ArticleService{repo: repo, events: events, now: time.Now}
}

func normalizeArticle(f *types.ArticleFields) {
	f.Title = mapString(f.Title, strings.TrimSpace)
	f.Author = mapString(f.Author, strings.TrimSpace)
	f.Category = mapString(f.Category, strings.TrimSpace)
	if f.Tags != nil {
		f.Tags = types.NormalizeTags(f.Tags)
	}
}

// build turns complete fields into an article, applying defaults to the
// optional ones.
func (s *ArticleService) build(f types.ArticleFields) types.Article {
	article := types.Article{
		Title:     *f.Title,
		Content:   *f.Content,
		Author:    *f.Author,
		Date:      s.now(),
		Published: true,
		Tags:      []string{},
		Category:  types.DefaultCategory,
	}
	if f.Date != nil {
		article.Date = *f.Date
	}
	if f.Published != nil {
		article.Published = *f.Published
	}
	if f.Tags != nil {
		article.Tags = f.Tags
	}
	if f.Views != nil {
		article.Views = *f.Views
	}
	if f.Category != nil {
		article.Category = *f.Category
	}
	if f.Featured != nil {
		article.Featured = *f.Featured
	}
	return article
}

func (s *ArticleService) Create(ctx context.Context, f types.ArticleFields) (types.Article, error) {
	normalizeArticle(&f)
	if err := validation.Article(f, true).Err(); err != nil {
		return types.Article{}, err
	}

	article, err := s.repo.Create(ctx, s.build(f))
	if err != nil {
		return types.Article{}, err
	}
	publish(s.events, ctx, events.ArticleCreated, article.ID, article.Public())
	return article, nil
}

// CreateMany inserts each record independently.
func (s *ArticleService) CreateMany(ctx context.Context, items []types.ArticleFields) (BulkResult[types.Article], error) {
	return insertEach(ctx, items, s.Create)
}

// Get returns an article without counting a view.
func (s *ArticleService) Get(ctx context.Context, id int64) (types.Article, error) {
	return s.repo.Get(ctx, id)
}

// View returns an article after counting one view.
func (s *ArticleService) View(ctx context.Context, id int64) (types.Article, error) {
	return s.repo.IncrementViews(ctx, id)
}

func (s *ArticleService) List(ctx context.Context, q query.Query) ([]types.Article, int64, error) {
	articles, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, q.Filters)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Search matches term against published articles. Other filters in q still
// apply.
func (s *ArticleService) Search(ctx context.Context, term string, q query.Query) ([]types.Article, int64, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, 0, validation.Errors{"q": "Search term is required"}
	}

	filters := make([]query.Predicate, 0, len(q.Filters)+2)
	for _, p := range q.Filters {
		if p.Op != query.OpSearch && p.Field != "published" {
			filters = append(filters, p)
		}
	}
	filters = append(filters,
		query.Predicate{Field: "published", Op: query.OpEq, Value: true},
		query.Predicate{Op: query.OpSearch, Value: term},
	)
	q.Filters = filters

	return s.List(ctx, q)
}

func (s *ArticleService) Stream(ctx context.Context, q query.Query, fn func(types.Article) error) error {
	return s.repo.Stream(ctx, q, fn)
}

// Update changes only the supplied fields. Columns the caller left out are
// not written, so a view counted concurrently survives.
func (s *ArticleService) Update(ctx context.Context, id int64, f types.ArticleFields) (types.Article, error) {
	if f.Empty() {
		return types.Article{}, emptyUpdate()
	}
	normalizeArticle(&f)
	if err := validation.Article(f, false).Err(); err != nil {
		return types.Article{}, err
	}

	updated, err := s.repo.Patch(ctx, id, articleSet(f))
	if err != nil {
		return types.Article{}, err
	}
	publish(s.events, ctx, events.ArticleUpdated, updated.ID, updated.Public())
	return updated, nil
}

// Replace overwrites the whole record. Omitted optional fields return to
// their defaults, so the view counter restarts at zero unless supplied.
func (s *ArticleService) Replace(ctx context.Context, id int64, f types.ArticleFields) (types.Article, error) {
	normalizeArticle(&f)
	if err := validation.Article(f, true).Err(); err != nil {
		return types.Article{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Article{}, err
	}

	article := s.build(f)
	article.ID = current.ID
	article.CreatedAt = current.CreatedAt

	updated, err := s.repo.Update(ctx, article)
	if err != nil {
		return types.Article{}, err
	}
	publish(s.events, ctx, events.ArticleUpdated, updated.ID, updated.Public())
	return updated, nil
}

// UpdateMany applies the supplied fields to every article matching filter.
func (s *ArticleService) UpdateMany(ctx context.Context, filter map[string]any, f types.ArticleFields) (matched, modified int64, err error) {
	preds, err := query.ParseFilter(query.ArticleSchema, filter)
	if err != nil {
		return 0, 0, err
	}
	if f.Empty() {
		return 0, 0, emptyUpdate()
	}
	normalizeArticle(&f)
	if err := validation.Article(f, false).Err(); err != nil {
		return 0, 0, err
	}

	return s.repo.UpdateMany(ctx, preds, articleSet(f))
}

// articleSet maps the supplied fields to column assignments.
func articleSet(f types.ArticleFields) map[string]any {
	set := map[string]any{}
	if f.Title != nil {
		set["title"] = *f.Title
	}
	if f.Content != nil {
		set["content"] = *f.Content
	}
	if f.Author != nil {
		set["author"] = *f.Author
	}
	if f.Date != nil {
		set["date"] = *f.Date
	}
	if f.Published != nil {
		set["published"] = *f.Published
	}
	if f.Tags != nil {
		set["tags"] = f.Tags
	}
	if f.Views != nil {
		set["views"] = *f.Views
	}
	if f.Category != nil {
		set["category"] = *f.Category
	}
	if f.Featured != nil {
		set["featured"] = *f.Featured
	}
	return set
}

func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	publish(s.events, ctx, events.ArticleDeleted, id, nil)
	return nil
}

func (s *ArticleService) DeleteMany(ctx context.Context, filter map[string]any) (int64, error) {
	preds, err := query.ParseFilter(query.ArticleSchema, filter)
	if err != nil {
		return 0, err
	}
	return s.repo.DeleteMany(ctx, preds)
}

func (s *ArticleService) Stats(ctx context.Context) (types.ArticleStats, error) {
	return s.repo.Stats(ctx)
}
