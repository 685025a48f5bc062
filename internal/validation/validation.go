// Package validation holds the field-level validators for users and articles.
// Validators never touch the store; uniqueness is enforced by the database.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/articlehub/apiserver/types"
)

// Errors maps a field name to the first validation message recorded for it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records message for field unless the field already has one.
func (e Errors) Add(field, message string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = message
}

// Err returns nil when no error was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail checks the address shape only.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

const (
	nameMin     = 2
	nameMax     = 50
	passwordMin = 6
	ageMin      = 1
	ageMax      = 120
	titleMin    = 5
	titleMax    = 200
	contentMin  = 10
	authorMin   = 2
	authorMax   = 50
	tagMax      = 30
)

// User validates the supplied user fields. Values are expected to be
// normalized already (trimmed, lowercased email). With requireAll set every
// required field must be present.
func User(f types.UserFields, requireAll bool) Errors {
	errs := Errors{}

	if f.Name == nil {
		if requireAll {
			errs.Add("name", "Name is required")
		}
	} else {
		checkLength(errs, "name", *f.Name, nameMin, nameMax, "Name")
	}

	if f.Email == nil || (*f.Email == "" && requireAll) {
		if requireAll {
			errs.Add("email", "Email is required")
		}
	} else if !ValidEmail(*f.Email) {
		errs.Add("email", "Please provide a valid email address")
	}

	if f.Password == nil {
		if requireAll {
			errs.Add("password", "Password is required")
		}
	} else if utf8.RuneCountInString(*f.Password) < passwordMin {
		errs.Add("password", fmt.Sprintf("Password must be at least %d characters long", passwordMin))
	}

	if f.Age == nil {
		if requireAll {
			errs.Add("age", "Age is required")
		}
	} else {
		switch {
		case *f.Age < ageMin:
			errs.Add("age", fmt.Sprintf("Age must be at least %d", ageMin))
		case *f.Age > ageMax:
			errs.Add("age", fmt.Sprintf("Age cannot exceed %d", ageMax))
		}
	}

	if f.Role != nil && !types.IsValidRole(*f.Role) {
		errs.Add("role", "Role must be one of the predefined values")
	}

	return errs
}

// Article validates the supplied article fields, with the same conventions as
// User.
func Article(f types.ArticleFields, requireAll bool) Errors {
	errs := Errors{}

	if f.Title == nil || (*f.Title == "" && requireAll) {
		if requireAll {
			errs.Add("title", "Article title is required")
		}
	} else {
		checkLength(errs, "title", *f.Title, titleMin, titleMax, "Title")
	}

	if f.Content == nil || (*f.Content == "" && requireAll) {
		if requireAll {
			errs.Add("content", "Article content is required")
		}
	} else if utf8.RuneCountInString(*f.Content) < contentMin {
		errs.Add("content", fmt.Sprintf("Content must be at least %d characters long", contentMin))
	}

	if f.Author == nil || (*f.Author == "" && requireAll) {
		if requireAll {
			errs.Add("author", "Author name is required")
		}
	} else {
		checkLength(errs, "author", *f.Author, authorMin, authorMax, "Author name")
	}

	for _, tag := range f.Tags {
		if utf8.RuneCountInString(tag) > tagMax {
			errs.Add("tags", fmt.Sprintf("Tag cannot exceed %d characters", tagMax))
			break
		}
	}

	if f.Views != nil && *f.Views < 0 {
		errs.Add("views", "Views cannot be negative")
	}

	if f.Category != nil && !types.IsValidCategory(*f.Category) {
		errs.Add("category", "Category must be one of the predefined values")
	}

	return errs
}

func checkLength(errs Errors, field, value string, min, max int, label string) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min:
		errs.Add(field, fmt.Sprintf("%s must be at least %d characters long", label, min))
	case n > max:
		errs.Add(field, fmt.Sprintf("%s cannot exceed %d characters", label, max))
	}
}
