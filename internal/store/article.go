package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/types"
)

const articleColumns = `id, title, content, author, date, published, tags, views, category, featured, created_at, updated_at`

// ArticleRepository handles persistence for articles.
type ArticleRepository struct {
	table
}

func NewArticleRepository(db *sql.DB, timeout time.Duration) *ArticleRepository {
	return &ArticleRepository{table: newTable(db, timeout, query.ArticleSchema)}
}

func scanArticle(row rowScanner) (types.Article, error) {
	var article types.Article
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Content,
		&article.Author,
		&article.Date,
		&article.Published,
		pq.Array(&article.Tags),
		&article.Views,
		&article.Category,
		&article.Featured,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if article.Tags == nil {
		article.Tags = []string{}
	}
	return article, err
}

func (r *ArticleRepository) Get(ctx context.Context, id int64) (types.Article, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.Article{}, mapError(err)
	}
	return article, nil
}

// IncrementViews adds one to the view counter and returns the updated
// article in a single statement.
func (r *ArticleRepository) IncrementViews(ctx context.Context, id int64) (types.Article, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		UPDATE articles
		SET views = views + 1
		WHERE id = $1
		RETURNING ` + articleColumns
	article, err := scanArticle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.Article{}, mapError(err)
	}
	return article, nil
}

func (r *ArticleRepository) Create(ctx context.Context, article types.Article) (types.Article, error) {
	now := time.Now()
	article.CreatedAt = now
	article.UpdatedAt = now

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		INSERT INTO articles (title, content, author, date, published, tags, views, category, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		article.Title,
		article.Content,
		article.Author,
		article.Date,
		article.Published,
		pq.Array(article.Tags),
		article.Views,
		article.Category,
		article.Featured,
		article.CreatedAt,
		article.UpdatedAt,
	).Scan(&article.ID); err != nil {
		return types.Article{}, mapError(err)
	}
	return article, nil
}

func (r *ArticleRepository) List(ctx context.Context, q query.Query) ([]types.Article, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	articles := []types.Article{}
	err := r.Stream(ctx, q, func(article types.Article) error {
		articles = append(articles, article)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *ArticleRepository) Count(ctx context.Context, filters []query.Predicate) (int64, error) {
	return r.count(ctx, filters)
}

// Stream calls fn for every article matching q, in order.
func (r *ArticleRepository) Stream(ctx context.Context, q query.Query, fn func(types.Article) error) error {
	stmt, args, err := r.selectSQL(articleColumns, q)
	if err != nil {
		return err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return mapError(err)
		}
		if err := fn(article); err != nil {
			return err
		}
	}
	return mapError(rows.Err())
}

func (r *ArticleRepository) Update(ctx context.Context, article types.Article) (types.Article, error) {
	article.UpdatedAt = time.Now()

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		UPDATE articles
		SET title = $1,
			content = $2,
			author = $3,
			date = $4,
			published = $5,
			tags = $6,
			views = $7,
			category = $8,
			featured = $9,
			updated_at = $10
		WHERE id = $11
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		article.Title,
		article.Content,
		article.Author,
		article.Date,
		article.Published,
		pq.Array(article.Tags),
		article.Views,
		article.Category,
		article.Featured,
		article.UpdatedAt,
		article.ID,
	).Scan(&article.CreatedAt)
	if err != nil {
		return types.Article{}, mapError(err)
	}
	return article, nil
}

// Patch assigns only the columns named in set and returns the stored row.
// Untouched columns, views included, keep whatever value they hold at write
// time.
func (r *ArticleRepository) Patch(ctx context.Context, id int64, set map[string]any) (types.Article, error) {
	st := newStatement(r.schema)
	assignments, _, err := st.assignments(set)
	if err != nil {
		return types.Article{}, err
	}
	updated := st.bind(time.Now())
	target := st.bind(id)

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	stmt := "UPDATE articles SET " + assignments + ", updated_at = " + updated +
		" WHERE id = " + target + " RETURNING " + articleColumns
	article, err := scanArticle(r.db.QueryRowContext(ctx, stmt, st.args...))
	if err != nil {
		return types.Article{}, mapError(err)
	}
	return article, nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, id)
}

func (r *ArticleRepository) UpdateMany(ctx context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error) {
	return r.updateMany(ctx, filters, set)
}

func (r *ArticleRepository) DeleteMany(ctx context.Context, filters []query.Predicate) (int64, error) {
	return r.deleteMany(ctx, filters)
}

func (r *ArticleRepository) Stats(ctx context.Context) (types.ArticleStats, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		SELECT COUNT(*),
			COALESCE(SUM(views), 0)::bigint,
			COALESCE(AVG(views), 0)::float8,
			COUNT(DISTINCT author),
			COUNT(*) FILTER (WHERE published)
		FROM articles`
	var stats types.ArticleStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalArticles,
		&stats.TotalViews,
		&stats.AverageViews,
		&stats.UniqueAuthors,
		&stats.PublishedArticles,
	)
	if err != nil {
		return types.ArticleStats{}, mapError(err)
	}
	return stats, nil
}
