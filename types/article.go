package types

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

const (
	DefaultCategory = "General"

	summaryLength  = 100
	wordsPerMinute = 200
)

// Categories lists every article category.
var Categories = []string{
	"Technology",
	"Science",
	"Programming",
	"Design",
	"Business",
	DefaultCategory,
}

// IsValidCategory reports whether category is one of Categories.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Article is a piece of published or draft content.
// Author is free text and does not reference a User.
type Article struct {
	// ID is the unique identifier of the article.
	ID int64 `json:"id" db:"id"`

	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
	Author  string `json:"author" db:"author"`

	// Date is the publication date shown to readers.
	Date time.Time `json:"date" db:"date"`

	Published bool `json:"published" db:"published"`

	// Tags are trimmed and unique; see NormalizeTags.
	Tags []string `json:"tags" db:"tags"`

	// Views counts detail reads. It never goes below zero.
	Views int64 `json:"views" db:"views"`

	Category string `json:"category" db:"category"`
	Featured bool   `json:"featured" db:"featured"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Summary returns the content cut to its first 100 characters.
func (a Article) Summary() string {
	if utf8.RuneCountInString(a.Content) <= summaryLength {
		return a.Content
	}
	runes := []rune(a.Content)
	return string(runes[:summaryLength]) + "..."
}

// ReadingMinutes estimates reading time at 200 words per minute, rounded up.
func (a Article) ReadingMinutes() int {
	words := len(strings.Fields(a.Content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func (a Article) ReadingTime() string {
	return strconv.Itoa(a.ReadingMinutes()) + " min read"
}

// FormattedDate renders Date as e.g. "January 15, 2024".
func (a Article) FormattedDate() string {
	return a.Date.Format("January 2, 2006")
}

// Slug is a URL-friendly form of the title.
func (a Article) Slug() string {
	return slug.Make(a.Title)
}

// Public returns the article keyed by API field name, including the derived
// fields.
func (a Article) Public() map[string]any {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"id":            a.ID,
		"title":         a.Title,
		"content":       a.Content,
		"author":        a.Author,
		"date":          a.Date,
		"published":     a.Published,
		"tags":          tags,
		"views":         a.Views,
		"category":      a.Category,
		"featured":      a.Featured,
		"createdAt":     a.CreatedAt,
		"updatedAt":     a.UpdatedAt,
		"summary":       a.Summary(),
		"readingTime":   a.ReadingTime(),
		"formattedDate": a.FormattedDate(),
		"slug":          a.Slug(),
	}
}

// NormalizeTags trims every tag, drops empty ones and removes duplicates,
// keeping the first occurrence. Comparison is case-sensitive.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ArticleFields carries article attributes decoded from a request body.
// A nil field was not supplied; Tags is nil when absent and non-nil (possibly
// empty) when supplied.
type ArticleFields struct {
	Title     *string    `json:"title"`
	Content   *string    `json:"content"`
	Author    *string    `json:"author"`
	Date      *time.Time `json:"date"`
	Published *bool      `json:"published"`
	Tags      []string   `json:"tags"`
	Views     *int64     `json:"views"`
	Category  *string    `json:"category"`
	Featured  *bool      `json:"featured"`
}

// Empty reports whether no field was supplied.
func (f ArticleFields) Empty() bool {
	return f.Title == nil && f.Content == nil && f.Author == nil && f.Date == nil &&
		f.Published == nil && f.Tags == nil && f.Views == nil && f.Category == nil && f.Featured == nil
}

// ArticleStats aggregates counters over all articles.
type ArticleStats struct {
	TotalArticles     int64   `json:"totalArticles"`
	TotalViews        int64   `json:"totalViews"`
	AverageViews      float64 `json:"averageViews"`
	UniqueAuthors     int64   `json:"uniqueAuthors"`
	PublishedArticles int64   `json:"publishedArticles"`
}
