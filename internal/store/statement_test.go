package store

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/articlehub/apiserver/internal/query"
)

func TestStatementWhere(t *testing.T) {
	st := newStatement(query.ArticleSchema)

	where, err := st.where([]query.Predicate{
		{Field: "author", Op: query.OpContains, Value: "50%_off"},
		{Field: "published", Op: query.OpEq, Value: true},
		{Field: "tags", Op: query.OpAnyOf, Value: []string{"go", "web"}},
	})
	require.NoError(t, err)

	assert.Equal(t, " WHERE author ILIKE $1 AND published = $2 AND tags && $3", where)
	assert.Equal(t, []any{`%50\%\_off%`, true, pq.Array([]string{"go", "web"})}, st.args)
}

func TestStatementSearchReusesPlaceholder(t *testing.T) {
	st := newStatement(query.ArticleSchema)

	where, err := st.where([]query.Predicate{{Op: query.OpSearch, Value: "chi"}})
	require.NoError(t, err)

	assert.Equal(t,
		" WHERE (title ILIKE $1 OR content ILIKE $1 OR author ILIKE $1 OR "+
			"EXISTS (SELECT 1 FROM unnest(tags) AS elem WHERE elem ILIKE $1))",
		where)
	assert.Len(t, st.args, 1)
}

func TestStatementSearchUnsupported(t *testing.T) {
	_, err := newStatement(query.UserSchema).where([]query.Predicate{{Op: query.OpSearch, Value: "x"}})
	assert.Error(t, err)
}

func TestStatementRejectsDerivedColumns(t *testing.T) {
	_, err := newStatement(query.UserSchema).orderBy([]query.Order{{Field: "ageGroup"}})
	assert.Error(t, err)
}

func TestStatementOrderBy(t *testing.T) {
	st := newStatement(query.ArticleSchema)

	order, err := st.orderBy([]query.Order{{Field: "views", Desc: true}, {Field: "title"}})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY views DESC, title ASC, id ASC", order)

	order, err = st.orderBy([]query.Order{{Field: "id", Desc: true}})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY id DESC", order)
}

func TestStatementPage(t *testing.T) {
	st := newStatement(query.UserSchema)
	assert.Equal(t, "", st.page(0, 0))
	assert.Equal(t, " LIMIT $1 OFFSET $2", st.page(10, 20))
	assert.Equal(t, []any{10, 20}, st.args)
}

func TestStatementAssignments(t *testing.T) {
	st := newStatement(query.ArticleSchema)

	set, changed, err := st.assignments(map[string]any{
		"published": false,
		"category":  "Science",
	})
	require.NoError(t, err)

	assert.Equal(t, "category = $1, published = $2", set)
	assert.Equal(t, "(category IS DISTINCT FROM $1 OR published IS DISTINCT FROM $2)", changed)
	assert.Equal(t, []any{"Science", false}, st.args)
}

func TestStatementAssignmentsEmpty(t *testing.T) {
	_, _, err := newStatement(query.UserSchema).assignments(nil)
	assert.Error(t, err)
}
