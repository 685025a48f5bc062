package query

import (
	"math"
	"sort"
	"strings"

	"github.com/articlehub/apiserver/internal/validation"
)

// ParseFilter converts a decoded JSON filter object into equality predicates.
// Only filterable fields are accepted; an array field matches when it
// contains the given string. An empty filter is rejected so a bulk operation
// never silently targets every record.
func ParseFilter(schema *Schema, raw map[string]any) ([]Predicate, error) {
	errs := validation.Errors{}
	if len(raw) == 0 {
		errs.Add("filter", "Filter must name at least one field")
		return nil, errs
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	preds := make([]Predicate, 0, len(names))
	for _, name := range names {
		field, ok := schema.Field(name)
		if !ok || !field.Filterable {
			errs.Add(name, "Field cannot be used in a filter")
			continue
		}

		pred, ok := filterPredicate(field, raw[name])
		if !ok {
			errs.Add(name, "Invalid filter value")
			continue
		}
		preds = append(preds, pred)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return preds, nil
}

func filterPredicate(field Field, value any) (Predicate, bool) {
	switch field.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return Predicate{}, false
		}
		if field.Name == "email" {
			s = strings.ToLower(strings.TrimSpace(s))
		}
		return Predicate{Field: field.Name, Op: OpEq, Value: s}, true
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return Predicate{}, false
		}
		return Predicate{Field: field.Name, Op: OpEq, Value: b}, true
	case KindInt:
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			return Predicate{}, false
		}
		return Predicate{Field: field.Name, Op: OpEq, Value: int64(n)}, true
	case KindStrings:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return Predicate{}, false
		}
		return Predicate{Field: field.Name, Op: OpAnyOf, Value: []string{strings.TrimSpace(s)}}, true
	default:
		return Predicate{}, false
	}
}
