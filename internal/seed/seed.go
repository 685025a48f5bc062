// Package seed fills an empty database with demo users and articles.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/types"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

type Options struct {
	ExtraUsers    int
	ExtraArticles int
	// Seed makes the generated records reproducible.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{ExtraUsers: 100, ExtraArticles: 50, Seed: 1}
}

// Report counts what Run inserted.
type Report struct {
	Users    int
	Articles int
	Failures []services.BulkFailure
}

type Seeder struct {
	users    *services.UserService
	articles *services.ArticleService
	logger   *zap.Logger
}

func NewSeeder(users *services.UserService, articles *services.ArticleService, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, articles: articles, logger: logger}
}

// Run seeds each collection only when it is empty, so it is safe to repeat.
func (s *Seeder) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report
	rng := newRand(opts.Seed)

	_, userCount, err := s.users.List(ctx, query.Query{Limit: 1})
	if err != nil {
		return report, fmt.Errorf("count users: %w", err)
	}
	if userCount == 0 {
		result, err := s.users.CreateMany(ctx, demoUsers(rng, opts.ExtraUsers))
		if err != nil {
			return report, fmt.Errorf("seed users: %w", err)
		}
		report.Users = len(result.Inserted)
		report.Failures = append(report.Failures, result.Failures...)
		s.logger.Info("users seeded", zap.Int("inserted", report.Users), zap.Int("failed", len(result.Failures)))
	} else {
		s.logger.Info("users present, skipping", zap.Int64("count", userCount))
	}

	_, articleCount, err := s.articles.List(ctx, query.Query{Limit: 1})
	if err != nil {
		return report, fmt.Errorf("count articles: %w", err)
	}
	if articleCount == 0 {
		result, err := s.articles.CreateMany(ctx, demoArticles(rng, opts.ExtraArticles))
		if err != nil {
			return report, fmt.Errorf("seed articles: %w", err)
		}
		report.Articles = len(result.Inserted)
		report.Failures = append(report.Failures, result.Failures...)
		s.logger.Info("articles seeded", zap.Int("inserted", report.Articles), zap.Int("failed", len(result.Failures)))
	} else {
		s.logger.Info("articles present, skipping", zap.Int64("count", articleCount))
	}

	return report, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func userFields(name, email string, age int, role string) types.UserFields {
	password := DemoPassword
	return types.UserFields{Name: &name, Email: &email, Password: &password, Age: &age, Role: &role}
}

var (
	firstNames = []string{"John", "Jane", "Mike", "Sarah", "David", "Emma", "Chris", "Lisa", "Tom", "Amy",
		"Steve", "Kate", "Paul", "Nina", "Mark", "Eva", "Alex", "Olga", "Dan", "Lena"}
	lastNames = []string{"Smith", "Johnson", "Brown", "Davis", "Miller", "Wilson", "Moore", "Taylor", "Anderson",
		"Thomas", "Jackson", "White", "Harris", "Martin", "Thompson", "Garcia", "Martinez", "Robinson", "Clark", "Rodriguez"}
	generatedRoles = []string{"Developer", "Designer", "Tester", "Project Manager", "DevOps", "Analyst", "Writer",
		"Manager", "Consultant", types.RoleAdmin}
)

func demoUsers(rng *rand.Rand, extra int) []types.UserFields {
	users := []types.UserFields{
		userFields("Alexander Petrenko", "alex@example.com", 28, "Developer"),
		userFields("Maria Ivanenko", "maria@example.com", 25, "Designer"),
		userFields("Sergey Kovalenko", "sergey@example.com", 32, "Project Manager"),
		userFields("Anna Sidorenko", "anna@example.com", 29, "Tester"),
		userFields("Site Administrator", "admin@example.com", 40, types.RoleAdmin),
	}
	for i := 0; i < extra; i++ {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		email := fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i)
		users = append(users, userFields(first+" "+last, email, 20+rng.IntN(40), generatedRoles[rng.IntN(len(generatedRoles))]))
	}
	return users
}

var (
	topics = []string{"Go Concurrency", "HTTP Routing", "SQL Migrations", "Session Management", "Docker Containers",
		"Kubernetes Deployment", "PostgreSQL Optimization", "Redis Caching", "Git Workflows", "CI/CD Pipelines",
		"Testing Strategies", "Security Practices", "Performance Tuning", "API Design", "Database Design",
		"Web Accessibility", "Message Queues", "Object Storage", "Structured Logging", "Microservices"}
	authors = []string{"Alexander Petrenko", "Maria Ivanenko", "Sergey Kovalenko", "Anna Sidorenko", "John Smith",
		"Jane Doe", "Mike Johnson", "Sarah Brown", "David Wilson", "Emma Davis"}
	tagOptions = []string{"go", "http", "sql", "postgresql", "docker", "kubernetes", "redis", "api", "frontend",
		"backend", "devops", "testing", "security", "performance"}
)

func articleFields(title, content, author string, tags []string, published bool, views int64) types.ArticleFields {
	return types.ArticleFields{
		Title:     &title,
		Content:   &content,
		Author:    &author,
		Tags:      tags,
		Published: &published,
		Views:     &views,
	}
}

func demoArticles(rng *rand.Rand, extra int) []types.ArticleFields {
	articles := []types.ArticleFields{
		articleFields("Getting Started with Go",
			"Go is a statically typed, compiled language designed for simple, reliable and efficient software. "+
				"Its standard library covers networking, encoding and testing, and goroutines make concurrent servers straightforward to write.",
			"Alexander Petrenko", []string{"go", "backend"}, true, rng.Int64N(50)),
		articleFields("Server-Rendered Templates",
			"Server-side templates combine static markup with request data before the page leaves the server. "+
				"Contextual escaping keeps user supplied values from turning into markup.",
			"Maria Ivanenko", []string{"templates", "frontend", "http"}, true, rng.Int64N(50)),
		articleFields("REST API Development",
			"REST is an architectural style built around resources identified by URLs. Clients exchange representations "+
				"of those resources using standard HTTP methods and status codes.",
			"Sergey Kovalenko", []string{"rest", "api", "http"}, true, rng.Int64N(50)),
		articleFields("Working with PostgreSQL Arrays",
			"PostgreSQL array columns store small lists such as tags next to the row they describe. "+
				"GIN indexes make overlap queries like tags && ARRAY['go'] fast.",
			"Anna Sidorenko", []string{"postgresql", "sql", "database"}, true, rng.Int64N(50)),
	}

	for i := 0; i < extra; i++ {
		topic := topics[rng.IntN(len(topics))]
		lower := strings.ToLower(topic)
		tags := make([]string, 0, 4)
		for _, idx := range rng.Perm(len(tagOptions))[:1+rng.IntN(4)] {
			tags = append(tags, tagOptions[idx])
		}
		articles = append(articles, articleFields(
			topic+" - Advanced Guide",
			"This guide covers "+lower+" in detail, with common patterns, practical examples and the trade-offs "+
				"you meet in production. It suits readers new to "+lower+" as well as experienced engineers.",
			authors[rng.IntN(len(authors))],
			tags,
			rng.Float64() > 0.1,
			rng.Int64N(100),
		))
	}
	return articles
}
