package query

// Kind is the value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindTime
	KindStrings
)

// Field describes one attribute a client may name in fields, sort or filter
// parameters. A field without a Column is derived and can only be projected.
type Field struct {
	Name       string
	Column     string
	Kind       Kind
	Sortable   bool
	Filterable bool
}

// Derived reports whether the field is computed rather than stored.
func (f Field) Derived() bool {
	return f.Column == ""
}

// Filter binds a query string parameter to a field and an operator.
type Filter struct {
	Param string
	Field string
	Op    Op
}

// Schema is the allow-list for one resource.
type Schema struct {
	Name    string
	Table   string
	Fields  []Field
	Filters []Filter

	// SearchColumns are matched by OpSearch predicates. Array columns are
	// matched element-wise.
	SearchColumns []string

	DefaultSort []Order

	// MaxLimit clamps explicit limits. Zero leaves them unbounded.
	MaxLimit int
}

// Field looks a field up by its API name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Column returns the storage column of a stored field, or "" when the name is
// unknown or derived.
func (s *Schema) Column(name string) string {
	f, ok := s.Field(name)
	if !ok {
		return ""
	}
	return f.Column
}

var UserSchema = &Schema{
	Name:  "user",
	Table: "users",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Sortable: true},
		{Name: "name", Column: "name", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "email", Column: "email", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "age", Column: "age", Kind: KindInt, Sortable: true, Filterable: true},
		{Name: "role", Column: "role", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "createdAt", Column: "created_at", Kind: KindTime, Sortable: true},
		{Name: "updatedAt", Column: "updated_at", Kind: KindTime, Sortable: true},
		{Name: "ageGroup", Kind: KindString},
		{Name: "fullInfo", Kind: KindString},
	},
	Filters: []Filter{
		{Param: "name", Field: "name", Op: OpContains},
		{Param: "role", Field: "role", Op: OpEq},
	},
	DefaultSort: []Order{{Field: "createdAt", Desc: true}},
}

var ArticleSchema = &Schema{
	Name:  "article",
	Table: "articles",
	Fields: []Field{
		{Name: "id", Column: "id", Kind: KindInt, Sortable: true},
		{Name: "title", Column: "title", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "content", Column: "content", Kind: KindString},
		{Name: "author", Column: "author", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "date", Column: "date", Kind: KindTime, Sortable: true},
		{Name: "published", Column: "published", Kind: KindBool, Sortable: true, Filterable: true},
		{Name: "tags", Column: "tags", Kind: KindStrings, Filterable: true},
		{Name: "views", Column: "views", Kind: KindInt, Sortable: true, Filterable: true},
		{Name: "category", Column: "category", Kind: KindString, Sortable: true, Filterable: true},
		{Name: "featured", Column: "featured", Kind: KindBool, Sortable: true, Filterable: true},
		{Name: "createdAt", Column: "created_at", Kind: KindTime, Sortable: true},
		{Name: "updatedAt", Column: "updated_at", Kind: KindTime, Sortable: true},
		{Name: "summary", Kind: KindString},
		{Name: "readingTime", Kind: KindString},
		{Name: "formattedDate", Kind: KindString},
		{Name: "slug", Kind: KindString},
	},
	Filters: []Filter{
		{Param: "author", Field: "author", Op: OpContains},
		{Param: "published", Field: "published", Op: OpEq},
		{Param: "tags", Field: "tags", Op: OpAnyOf},
		{Param: "category", Field: "category", Op: OpEq},
		{Param: "featured", Field: "featured", Op: OpEq},
		{Param: "q", Op: OpSearch},
	},
	SearchColumns: []string{"title", "content", "author", "tags"},
	DefaultSort:   []Order{{Field: "createdAt", Desc: true}},
}
