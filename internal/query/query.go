// Package query turns untrusted request parameters into a bounded query
// descriptor. It performs no I/O.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

type Op int

const (
	// OpEq matches a field equal to Value.
	OpEq Op = iota
	// OpContains is a case-insensitive substring match.
	OpContains
	// OpAnyOf matches when an array field shares any element with Value
	// ([]string).
	OpAnyOf
	// OpSearch is a case-insensitive substring match over the schema's
	// SearchColumns. Field is empty.
	OpSearch
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpContains:
		return "contains"
	case OpAnyOf:
		return "anyOf"
	case OpSearch:
		return "search"
	default:
		return "unknown"
	}
}

type Predicate struct {
	Field string
	Op    Op
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

// Query is the shaped form of a list request. Limit 0 means no limit.
type Query struct {
	Fields  []string
	Filters []Predicate
	Sort    []Order
	Limit   int
	Skip    int
}

// Shape builds a Query for schema from request parameters. Unknown field
// names are dropped and malformed numbers are treated as absent.
func Shape(schema *Schema, values url.Values) Query {
	q := Query{
		Fields:  ParseFields(schema, values.Get("fields")),
		Filters: parseFilters(schema, values),
		Sort:    ParseSort(schema, values.Get("sort")),
	}

	if limit, ok := parseNonNegative(values.Get("limit")); ok {
		q.Limit = limit
	}
	if schema.MaxLimit > 0 && q.Limit > schema.MaxLimit {
		q.Limit = schema.MaxLimit
	}
	if skip, ok := parseNonNegative(values.Get("skip")); ok {
		q.Skip = skip
	}

	return q
}

// ParseFields parses a comma-separated projection. The result is nil when no
// known field was named; otherwise id is always included first.
func ParseFields(schema *Schema, raw string) []string {
	var fields []string
	seen := map[string]bool{}

	for _, name := range splitList(raw) {
		if seen[name] {
			continue
		}
		if _, ok := schema.Field(name); !ok {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}

	if len(fields) == 0 {
		return nil
	}
	if !seen["id"] {
		fields = append([]string{"id"}, fields...)
	}
	return fields
}

// ParseSort parses a comma-separated sort specification where a leading "-"
// marks descending order. Unsortable and repeated fields are skipped; an empty
// result falls back to the schema default.
func ParseSort(schema *Schema, raw string) []Order {
	var orders []Order
	seen := map[string]bool{}

	for _, item := range splitList(raw) {
		desc := strings.HasPrefix(item, "-")
		name := strings.TrimPrefix(item, "-")
		if desc {
			name = strings.TrimSpace(name)
		}

		f, ok := schema.Field(name)
		if !ok || !f.Sortable || seen[name] {
			continue
		}
		seen[name] = true
		orders = append(orders, Order{Field: name, Desc: desc})
	}

	if len(orders) == 0 {
		return append([]Order(nil), schema.DefaultSort...)
	}
	return orders
}

func parseFilters(schema *Schema, values url.Values) []Predicate {
	var preds []Predicate

	for _, filter := range schema.Filters {
		raw := strings.TrimSpace(values.Get(filter.Param))
		if raw == "" {
			continue
		}

		if filter.Op == OpSearch {
			preds = append(preds, Predicate{Op: OpSearch, Value: raw})
			continue
		}

		field, ok := schema.Field(filter.Field)
		if !ok {
			continue
		}

		switch filter.Op {
		case OpAnyOf:
			set := splitList(raw)
			if len(set) == 0 {
				continue
			}
			preds = append(preds, Predicate{Field: field.Name, Op: OpAnyOf, Value: set})
		case OpContains:
			preds = append(preds, Predicate{Field: field.Name, Op: OpContains, Value: raw})
		case OpEq:
			value, ok := parseScalar(field.Kind, raw)
			if !ok {
				continue
			}
			preds = append(preds, Predicate{Field: field.Name, Op: OpEq, Value: value})
		}
	}

	return preds
}

func parseScalar(kind Kind, raw string) (any, bool) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		return b, true
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case KindString:
		return raw, true
	default:
		return nil, false
	}
}

func parseNonNegative(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Project keeps only the named keys of record. With no fields it returns the
// record unchanged.
func Project(record map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return record
	}
	out := make(map[string]any, len(fields))
	for _, name := range fields {
		if v, ok := record[name]; ok {
			out[name] = v
		}
	}
	return out
}
