package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/articlehub/apiserver/internal/validation"
)

func TestShapeSortDescendingThenAscending(t *testing.T) {
	q := Shape(ArticleSchema, url.Values{"sort": {"-views,title"}})

	assert.Equal(t, []Order{
		{Field: "views", Desc: true},
		{Field: "title", Desc: false},
	}, q.Sort)
}

func TestShapeInvalidLimitIsAbsent(t *testing.T) {
	withGarbage := Shape(ArticleSchema, url.Values{"limit": {"abc"}, "skip": {"-3"}})
	without := Shape(ArticleSchema, url.Values{})

	assert.Equal(t, without, withGarbage)
	assert.Equal(t, 0, withGarbage.Limit)
	assert.Equal(t, 0, withGarbage.Skip)
}

func TestShapePagination(t *testing.T) {
	q := Shape(UserSchema, url.Values{"limit": {"10"}, "skip": {"20"}})
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Skip)
}

func TestShapeMaxLimit(t *testing.T) {
	schema := *UserSchema
	schema.MaxLimit = 50

	assert.Equal(t, 50, Shape(&schema, url.Values{"limit": {"500"}}).Limit)
	assert.Equal(t, 0, Shape(&schema, url.Values{}).Limit)
}

func TestShapeDefaultSort(t *testing.T) {
	q := Shape(UserSchema, url.Values{"sort": {"password,-ageGroup"}})
	assert.Equal(t, []Order{{Field: "createdAt", Desc: true}}, q.Sort)
}

func TestShapeDefaultSortIsCopied(t *testing.T) {
	q := Shape(UserSchema, url.Values{})
	q.Sort[0].Desc = false
	assert.True(t, UserSchema.DefaultSort[0].Desc)
}

func TestParseSortSkipsDuplicates(t *testing.T) {
	orders := ParseSort(ArticleSchema, " title , -title,views ")
	assert.Equal(t, []Order{{Field: "title"}, {Field: "views"}}, orders)
}

func TestParseFieldsIgnoresUnknown(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "email"}, ParseFields(UserSchema, "name,password,email,name"))
	assert.Nil(t, ParseFields(UserSchema, "password,$where"))
	assert.Equal(t, []string{"title", "id"}, ParseFields(ArticleSchema, "title,id"))
}

func TestShapeArticleFilters(t *testing.T) {
	q := Shape(ArticleSchema, url.Values{
		"author":    {"Ale"},
		"published": {"false"},
		"tags":      {"go, web,,"},
		"category":  {"Technology"},
		"q":         {"chi"},
	})

	assert.Equal(t, []Predicate{
		{Field: "author", Op: OpContains, Value: "Ale"},
		{Field: "published", Op: OpEq, Value: false},
		{Field: "tags", Op: OpAnyOf, Value: []string{"go", "web"}},
		{Field: "category", Op: OpEq, Value: "Technology"},
		{Op: OpSearch, Value: "chi"},
	}, q.Filters)
}

func TestShapeIgnoresUnparsableBool(t *testing.T) {
	q := Shape(ArticleSchema, url.Values{"published": {"maybe"}, "tags": {" , "}})
	assert.Empty(t, q.Filters)
}

func TestProject(t *testing.T) {
	record := map[string]any{"id": 1, "name": "Alex", "email": "alex@example.com"}

	assert.Equal(t, record, Project(record, nil))
	assert.Equal(t, map[string]any{"id": 1, "name": "Alex"}, Project(record, []string{"id", "name", "missing"}))
}

func TestParseFilter(t *testing.T) {
	preds, err := ParseFilter(ArticleSchema, map[string]any{
		"published": true,
		"views":     float64(3),
		"tags":      " go ",
		"author":    "Alex",
	})
	require.NoError(t, err)

	assert.Equal(t, []Predicate{
		{Field: "author", Op: OpEq, Value: "Alex"},
		{Field: "published", Op: OpEq, Value: true},
		{Field: "tags", Op: OpAnyOf, Value: []string{"go"}},
		{Field: "views", Op: OpEq, Value: int64(3)},
	}, preds)
}

func TestParseFilterRejectsUnknownAndEmpty(t *testing.T) {
	_, err := ParseFilter(UserSchema, map[string]any{})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "filter")

	_, err = ParseFilter(UserSchema, map[string]any{"password": "x", "age": "old"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Field cannot be used in a filter", verr["password"])
	assert.Equal(t, "Invalid filter value", verr["age"])
}

func TestParseFilterLowercasesEmail(t *testing.T) {
	preds, err := ParseFilter(UserSchema, map[string]any{"email": " Alex@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", preds[0].Value)
}
