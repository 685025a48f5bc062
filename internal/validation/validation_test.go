package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/articlehub/apiserver/types"
)

func ptr[T any](v T) *T { return &v }

func TestUserRequiresEveryField(t *testing.T) {
	errs := User(types.UserFields{}, true)

	assert.Equal(t, Errors{
		"name":     "Name is required",
		"email":    "Email is required",
		"password": "Password is required",
		"age":      "Age is required",
	}, errs)
}

func TestUserPartialSkipsMissingFields(t *testing.T) {
	errs := User(types.UserFields{Age: ptr(30)}, false)
	assert.NoError(t, errs.Err())
}

func TestUserReportsEveryViolation(t *testing.T) {
	errs := User(types.UserFields{
		Name:     ptr("A"),
		Email:    ptr("not-an-email"),
		Password: ptr("123"),
		Age:      ptr(121),
		Role:     ptr("Pirate"),
	}, true)

	require.Len(t, errs, 5)
	assert.Equal(t, "Name must be at least 2 characters long", errs["name"])
	assert.Equal(t, "Please provide a valid email address", errs["email"])
	assert.Equal(t, "Password must be at least 6 characters long", errs["password"])
	assert.Equal(t, "Age cannot exceed 120", errs["age"])
	assert.Equal(t, "Role must be one of the predefined values", errs["role"])
}

func TestUserAgeLowerBound(t *testing.T) {
	errs := User(types.UserFields{Age: ptr(0)}, false)
	assert.Equal(t, "Age must be at least 1", errs["age"])
}

func TestArticleRequiresEveryField(t *testing.T) {
	errs := Article(types.ArticleFields{}, true)

	assert.Equal(t, Errors{
		"title":   "Article title is required",
		"content": "Article content is required",
		"author":  "Author name is required",
	}, errs)
}

func TestArticleRules(t *testing.T) {
	errs := Article(types.ArticleFields{
		Title:    ptr(strings.Repeat("t", 201)),
		Content:  ptr("too short"),
		Author:   ptr("X"),
		Tags:     []string{"ok", strings.Repeat("x", 31)},
		Views:    ptr(int64(-1)),
		Category: ptr("Cooking"),
	}, false)

	assert.Equal(t, "Title cannot exceed 200 characters", errs["title"])
	assert.Equal(t, "Content must be at least 10 characters long", errs["content"])
	assert.Equal(t, "Author name must be at least 2 characters long", errs["author"])
	assert.Equal(t, "Tag cannot exceed 30 characters", errs["tags"])
	assert.Equal(t, "Views cannot be negative", errs["views"])
	assert.Equal(t, "Category must be one of the predefined values", errs["category"])
}

func TestArticleValid(t *testing.T) {
	errs := Article(types.ArticleFields{
		Title:   ptr("Getting started"),
		Content: ptr("Some meaningful content"),
		Author:  ptr("Alex"),
	}, true)
	assert.NoError(t, errs.Err())
}

func TestErrorsAddKeepsFirstMessage(t *testing.T) {
	errs := Errors{}
	errs.Add("name", "first")
	errs.Add("name", "second")

	assert.Equal(t, "first", errs["name"])
	assert.Equal(t, "validation failed: name: first", errs.Error())
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("alex@example.com"))
	assert.False(t, ValidEmail("alex@example"))
	assert.False(t, ValidEmail("alex @example.com"))
}
