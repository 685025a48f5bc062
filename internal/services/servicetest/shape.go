package servicetest

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/types"
)

// userRecord and articleRecord expose stored fields under their API names
// with the value types the query package produces (int64 for integers).
func userRecord(u types.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"age":       int64(u.Age),
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

func articleRecord(a types.Article) map[string]any {
	return map[string]any{
		"id":        a.ID,
		"title":     a.Title,
		"content":   a.Content,
		"author":    a.Author,
		"date":      a.Date,
		"published": a.Published,
		"tags":      a.Tags,
		"views":     a.Views,
		"category":  a.Category,
		"featured":  a.Featured,
		"createdAt": a.CreatedAt,
		"updatedAt": a.UpdatedAt,
	}
}

// matches evaluates preds the way the Postgres statement builder renders
// them: equality, ILIKE substring, array overlap and the search disjunction.
func matches(schema *query.Schema, record map[string]any, preds []query.Predicate) bool {
	for _, p := range preds {
		if !matchOne(schema, record, p) {
			return false
		}
	}
	return true
}

func matchOne(schema *query.Schema, record map[string]any, p query.Predicate) bool {
	switch p.Op {
	case query.OpEq:
		if _, ok := record[p.Field].([]string); ok {
			return false
		}
		return record[p.Field] == p.Value
	case query.OpContains:
		text, _ := record[p.Field].(string)
		term, _ := p.Value.(string)
		return containsFold(text, term)
	case query.OpAnyOf:
		set, _ := p.Value.([]string)
		switch v := record[p.Field].(type) {
		case []string:
			return slices.ContainsFunc(v, func(s string) bool { return slices.Contains(set, s) })
		case string:
			return slices.Contains(set, v)
		}
		return false
	case query.OpSearch:
		term, _ := p.Value.(string)
		for _, name := range schema.SearchColumns {
			switch v := record[name].(type) {
			case string:
				if containsFold(v, term) {
					return true
				}
			case []string:
				if slices.ContainsFunc(v, func(s string) bool { return containsFold(s, term) }) {
					return true
				}
			}
		}
		return false
	}
	return false
}

func containsFold(text, term string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case int64:
		y, _ := b.(int64)
		return cmp.Compare(x, y)
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case bool:
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	}
	return 0
}

// shape filters, orders and pages items like a SELECT built from q. Rows that
// tie on every sort key fall back to id ascending.
func shape[T any](schema *query.Schema, items []T, record func(T) map[string]any, q query.Query) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(schema, record(item), q.Filters) {
			out = append(out, item)
		}
	}

	slices.SortStableFunc(out, func(a, b T) int {
		ra, rb := record(a), record(b)
		for _, o := range q.Sort {
			c := compareValues(ra[o.Field], rb[o.Field])
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return compareValues(ra["id"], rb["id"])
	})

	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return out[:0]
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

func count[T any](schema *query.Schema, items []T, record func(T) map[string]any, filters []query.Predicate) int64 {
	var n int64
	for _, item := range items {
		if matches(schema, record(item), filters) {
			n++
		}
	}
	return n
}
