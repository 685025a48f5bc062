package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/articlehub/apiserver/internal/query"
)

// statement accumulates the SQL fragments and positional arguments of one
// query built from a query.Query. Column names only ever come from the schema.
type statement struct {
	schema *query.Schema
	args   []any
}

func newStatement(schema *query.Schema) *statement {
	return &statement{schema: schema}
}

func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return "$" + strconv.Itoa(len(s.args))
}

func (s *statement) field(name string) (query.Field, error) {
	f, ok := s.schema.Field(name)
	if !ok || f.Derived() {
		return query.Field{}, fmt.Errorf("%s: unknown column %q", s.schema.Name, name)
	}
	return f, nil
}

// where renders the predicates joined by AND, prefixed with " WHERE ".
// It returns "" for no predicates.
func (s *statement) where(preds []query.Predicate) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		clause, err := s.predicate(p)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

func (s *statement) predicate(p query.Predicate) (string, error) {
	if p.Op == query.OpSearch {
		return s.search(p.Value)
	}

	f, err := s.field(p.Field)
	if err != nil {
		return "", err
	}

	switch p.Op {
	case query.OpEq:
		return fmt.Sprintf("%s = %s", f.Column, s.bind(p.Value)), nil
	case query.OpContains:
		text, ok := p.Value.(string)
		if !ok {
			return "", fmt.Errorf("%s: contains on %q needs a string", s.schema.Name, p.Field)
		}
		return fmt.Sprintf("%s ILIKE %s", f.Column, s.bind(likePattern(text))), nil
	case query.OpAnyOf:
		set, ok := p.Value.([]string)
		if !ok {
			return "", fmt.Errorf("%s: anyOf on %q needs a string list", s.schema.Name, p.Field)
		}
		if f.Kind == query.KindStrings {
			return fmt.Sprintf("%s && %s", f.Column, s.bind(pq.Array(set))), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", f.Column, s.bind(pq.Array(set))), nil
	default:
		return "", fmt.Errorf("%s: unsupported operator %s", s.schema.Name, p.Op)
	}
}

func (s *statement) search(value any) (string, error) {
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: search needs a string", s.schema.Name)
	}
	if len(s.schema.SearchColumns) == 0 {
		return "", fmt.Errorf("%s: search is not supported", s.schema.Name)
	}

	placeholder := s.bind(likePattern(text))
	parts := make([]string, 0, len(s.schema.SearchColumns))
	for _, name := range s.schema.SearchColumns {
		f, err := s.field(name)
		if err != nil {
			return "", err
		}
		if f.Kind == query.KindStrings {
			parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE elem ILIKE %s)", f.Column, placeholder))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", f.Column, placeholder))
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// orderBy renders the sort with id appended as a tiebreaker so pagination is
// stable.
func (s *statement) orderBy(orders []query.Order) (string, error) {
	parts := make([]string, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		f, err := s.field(o.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, f.Column+" "+dir)
		hasID = hasID || f.Column == "id"
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (s *statement) page(limit, skip int) string {
	var b strings.Builder
	if limit > 0 {
		b.WriteString(" LIMIT " + s.bind(limit))
	}
	if skip > 0 {
		b.WriteString(" OFFSET " + s.bind(skip))
	}
	return b.String()
}

// assignments renders "col = $n" pairs for an UPDATE together with a
// condition that holds when at least one column would change.
func (s *statement) assignments(values map[string]any) (set, changed string, err error) {
	if len(values) == 0 {
		return "", "", fmt.Errorf("%s: nothing to update", s.schema.Name)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	diffs := make([]string, 0, len(names))
	for _, name := range names {
		f, err := s.field(name)
		if err != nil {
			return "", "", err
		}
		value := values[name]
		if tags, ok := value.([]string); ok {
			value = pq.Array(tags)
		}
		placeholder := s.bind(value)
		sets = append(sets, fmt.Sprintf("%s = %s", f.Column, placeholder))
		diffs = append(diffs, fmt.Sprintf("%s IS DISTINCT FROM %s", f.Column, placeholder))
	}
	return strings.Join(sets, ", "), "(" + strings.Join(diffs, " OR ") + ")", nil
}

func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
