package types

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"trim and dedupe", []string{"a", " a ", "b"}, []string{"a", "b"}},
		{"case sensitive", []string{"Go", "go", "GO "}, []string{"Go", "go", "GO"}},
		{"drops blanks", []string{" ", "", "x"}, []string{"x"}},
		{"nil", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestNormalizeTagsIdempotent(t *testing.T) {
	once := NormalizeTags([]string{"a", " a ", "b"})
	assert.Equal(t, once, NormalizeTags(once))
}

func TestArticleSummary(t *testing.T) {
	short := Article{Content: "short content"}
	assert.Equal(t, "short content", short.Summary())

	long := Article{Content: strings.Repeat("x", 150)}
	assert.Equal(t, strings.Repeat("x", 100)+"...", long.Summary())

	exact := Article{Content: strings.Repeat("é", 100)}
	assert.Equal(t, exact.Content, exact.Summary())
}

func TestArticleReadingTime(t *testing.T) {
	assert.Equal(t, "1 min read", Article{Content: "a few words here"}.ReadingTime())
	assert.Equal(t, "1 min read", Article{Content: strings.Repeat("word ", 200)}.ReadingTime())
	assert.Equal(t, "2 min read", Article{Content: strings.Repeat("word ", 201)}.ReadingTime())
}

func TestArticleDerivedFields(t *testing.T) {
	a := Article{
		Title: "REST API Development",
		Date:  time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "March 5, 2024", a.FormattedDate())
	assert.Equal(t, "rest-api-development", a.Slug())

	public := a.Public()
	assert.Equal(t, []string{}, public["tags"])
	assert.Equal(t, "March 5, 2024", public["formattedDate"])
}

func TestIsValidCategory(t *testing.T) {
	assert.True(t, IsValidCategory("Science"))
	assert.False(t, IsValidCategory("science"))
}

func TestUserProfileOmitsPassword(t *testing.T) {
	u := User{ID: 1, Name: "Alex", Email: "alex@example.com", PasswordHash: "secret", Age: 28, Role: "Developer"}
	profile := u.Profile()

	_, hasPassword := profile["password"]
	assert.False(t, hasPassword)
	assert.Equal(t, "Young Adult", profile["ageGroup"])
	assert.Equal(t, "Alex (alex@example.com) - Developer", profile["fullInfo"])
}

func TestUserAgeGroup(t *testing.T) {
	assert.Equal(t, "Minor", User{Age: 17}.AgeGroup())
	assert.Equal(t, "Young Adult", User{Age: 18}.AgeGroup())
	assert.Equal(t, "Adult", User{Age: 30}.AgeGroup())
	assert.Equal(t, "Senior", User{Age: 50}.AgeGroup())
}
