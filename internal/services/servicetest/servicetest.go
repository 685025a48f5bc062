// Package servicetest provides in-memory repositories and an event recorder
// for tests of the services and the handlers built on them.
package servicetest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/types"
)

type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]types.User
	// Err, when set, is returned by Create.
	Err error
	// LookupErr, when set, is returned by GetByID.
	LookupErr error
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: map[int64]types.User{}}
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LookupErr != nil {
		return types.User{}, r.LookupErr
	}
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepo) emailTaken(email string, except int64) bool {
	for id, user := range r.users {
		if id != except && user.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.User{}, r.Err
	}
	if r.emailTaken(user.Email, 0) {
		return types.User{}, store.ErrUniqueViolation
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) all() []types.User {
	users := []types.User{}
	for id := int64(1); id <= r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, user)
		}
	}
	return users
}

func (r *UserRepo) List(_ context.Context, q query.Query) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return shape(query.UserSchema, r.all(), userRecord, q), nil
}

func (r *UserRepo) Count(_ context.Context, filters []query.Predicate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return count(query.UserSchema, r.all(), userRecord, filters), nil
}

func (r *UserRepo) Stream(ctx context.Context, q query.Query, fn func(types.User) error) error {
	users, _ := r.List(ctx, q)
	for _, user := range users {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrUniqueViolation
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepo) UpdateMany(_ context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched, modified int64
	for id, user := range r.users {
		if !matches(query.UserSchema, userRecord(user), filters) {
			continue
		}
		matched++
		if updated, changed := applyUserSet(user, set); changed {
			updated.UpdatedAt = time.Now()
			r.users[id] = updated
			modified++
		}
	}
	return matched, modified, nil
}

func applyUserSet(user types.User, set map[string]any) (types.User, bool) {
	before := user
	for name, value := range set {
		switch name {
		case "name":
			user.Name = value.(string)
		case "email":
			user.Email = value.(string)
		case "age":
			user.Age = value.(int)
		case "role":
			user.Role = value.(string)
		}
	}
	return user, user != before
}

func (r *UserRepo) DeleteMany(_ context.Context, filters []query.Predicate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, user := range r.users {
		if matches(query.UserSchema, userRecord(user), filters) {
			delete(r.users, id)
			deleted++
		}
	}
	return deleted, nil
}

type ArticleRepo struct {
	mu       sync.Mutex
	nextID   int64
	articles map[int64]types.Article
	Err      error
	LastList query.Query
}

func NewArticleRepo() *ArticleRepo {
	return &ArticleRepo{articles: map[int64]types.Article{}}
}

func (r *ArticleRepo) Get(_ context.Context, id int64) (types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	return article, nil
}

func (r *ArticleRepo) IncrementViews(_ context.Context, id int64) (types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	article.Views++
	r.articles[id] = article
	return article, nil
}

func (r *ArticleRepo) Create(_ context.Context, article types.Article) (types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return types.Article{}, r.Err
	}
	r.nextID++
	article.ID = r.nextID
	article.CreatedAt = time.Now()
	article.UpdatedAt = article.CreatedAt
	r.articles[article.ID] = article
	return article, nil
}

func (r *ArticleRepo) all() []types.Article {
	articles := []types.Article{}
	for id := int64(1); id <= r.nextID; id++ {
		if article, ok := r.articles[id]; ok {
			articles = append(articles, article)
		}
	}
	return articles
}

func (r *ArticleRepo) List(_ context.Context, q query.Query) ([]types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastList = q
	return shape(query.ArticleSchema, r.all(), articleRecord, q), nil
}

func (r *ArticleRepo) Count(_ context.Context, filters []query.Predicate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return count(query.ArticleSchema, r.all(), articleRecord, filters), nil
}

func (r *ArticleRepo) Stream(ctx context.Context, q query.Query, fn func(types.Article) error) error {
	articles, _ := r.List(ctx, q)
	for _, article := range articles {
		if err := fn(article); err != nil {
			return err
		}
	}
	return nil
}

func (r *ArticleRepo) Update(_ context.Context, article types.Article) (types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[article.ID]; !ok {
		return types.Article{}, store.ErrNotFound
	}
	article.UpdatedAt = time.Now()
	r.articles[article.ID] = article
	return article, nil
}

// Patch writes only the columns named in set.
func (r *ArticleRepo) Patch(_ context.Context, id int64, set map[string]any) (types.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return types.Article{}, store.ErrNotFound
	}
	article, _ = applyArticleSet(article, set)
	article.UpdatedAt = time.Now()
	r.articles[id] = article
	return article, nil
}

func (r *ArticleRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.articles, id)
	return nil
}

func (r *ArticleRepo) UpdateMany(_ context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched, modified int64
	for id, article := range r.articles {
		if !matches(query.ArticleSchema, articleRecord(article), filters) {
			continue
		}
		matched++
		if updated, changed := applyArticleSet(article, set); changed {
			updated.UpdatedAt = time.Now()
			r.articles[id] = updated
			modified++
		}
	}
	return matched, modified, nil
}

func applyArticleSet(article types.Article, set map[string]any) (types.Article, bool) {
	changed := false
	for name, value := range set {
		switch name {
		case "title":
			changed = changed || article.Title != value.(string)
			article.Title = value.(string)
		case "content":
			changed = changed || article.Content != value.(string)
			article.Content = value.(string)
		case "author":
			changed = changed || article.Author != value.(string)
			article.Author = value.(string)
		case "date":
			changed = changed || !article.Date.Equal(value.(time.Time))
			article.Date = value.(time.Time)
		case "published":
			changed = changed || article.Published != value.(bool)
			article.Published = value.(bool)
		case "tags":
			changed = changed || !slices.Equal(article.Tags, value.([]string))
			article.Tags = value.([]string)
		case "views":
			changed = changed || article.Views != value.(int64)
			article.Views = value.(int64)
		case "category":
			changed = changed || article.Category != value.(string)
			article.Category = value.(string)
		case "featured":
			changed = changed || article.Featured != value.(bool)
			article.Featured = value.(bool)
		}
	}
	return article, changed
}

func (r *ArticleRepo) DeleteMany(_ context.Context, filters []query.Predicate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, article := range r.articles {
		if matches(query.ArticleSchema, articleRecord(article), filters) {
			delete(r.articles, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *ArticleRepo) Stats(_ context.Context) (types.ArticleStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats types.ArticleStats
	authors := map[string]bool{}
	for _, article := range r.articles {
		stats.TotalArticles++
		stats.TotalViews += article.Views
		authors[article.Author] = true
		if article.Published {
			stats.PublishedArticles++
		}
	}
	stats.UniqueAuthors = int64(len(authors))
	if stats.TotalArticles > 0 {
		stats.AverageViews = float64(stats.TotalViews) / float64(stats.TotalArticles)
	}
	return stats, nil
}

type Event struct {
	Type string
	ID   int64
}

type Publisher struct {
	mu     sync.Mutex
	Events []Event
}

func (p *Publisher) Publish(_ context.Context, eventType string, id int64, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, Event{Type: eventType, ID: id})
}

// Types lists the recorded event types in publish order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Type)
	}
	return out
}
