package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/articlehub/apiserver/internal/events"
	"github.com/articlehub/apiserver/internal/services/servicetest"
	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/internal/validation"
	"github.com/articlehub/apiserver/types"
)

func ptr[T any](v T) *T { return &v }

func newUserService(t *testing.T) (*UserService, *servicetest.UserRepo, *servicetest.Publisher) {
	t.Helper()
	repo := servicetest.NewUserRepo()
	pub := &servicetest.Publisher{}
	svc := NewUserService(repo, pub)
	svc.SetHashCost(bcrypt.MinCost)
	return svc, repo, pub
}

func userFields(name, email string) types.UserFields {
	return types.UserFields{
		Name:     ptr(name),
		Email:    ptr(email),
		Password: ptr("password123"),
		Age:      ptr(28),
	}
}

func TestRegisterLowercasesEmailAndForcesRole(t *testing.T) {
	svc, _, pub := newUserService(t)
	ctx := context.Background()

	f := userFields(" Alex ", "  Alex@Example.COM ")
	f.Role = ptr(types.RoleAdmin)

	user, err := svc.Register(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, "Alex", user.Name)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.Equal(t, types.RoleUser, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
	assert.Equal(t, []string{events.UserRegistered}, pub.Types())

	assert.Equal(t, " Alex ", *f.Name, "caller fields are not modified")
}

func TestRegisterDuplicateEmailAnyCase(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, userFields("Alex", "alex@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, userFields("Other Alex", "ALEX@example.com"))
	assert.ErrorIs(t, err, store.ErrUniqueViolation)
}

func TestCreateReportsValidation(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Create(context.Background(), types.UserFields{Name: ptr("A")})

	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr, 4)
}

func TestCreateRejectsOverlongPassword(t *testing.T) {
	svc, _, _ := newUserService(t)

	f := userFields("Alex", "alex@example.com")
	f.Password = ptr(strings.Repeat("x", 80))

	_, err := svc.Create(context.Background(), f)
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "password")
}

func TestCreateManyPartialFailure(t *testing.T) {
	svc, _, _ := newUserService(t)

	items := []types.UserFields{
		userFields("Alex", "alex@example.com"),
		userFields("Maria", "maria@example.com"),
		userFields("Alex Again", "alex@example.com"),
		{Name: ptr("Bad")},
	}

	result, err := svc.CreateMany(context.Background(), items)
	require.NoError(t, err)

	assert.Len(t, result.Inserted, 2)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 2, result.Failures[0].Index)
	assert.Equal(t, "duplicate value", result.Failures[0].Error)
	assert.Equal(t, 3, result.Failures[1].Index)
	assert.NotEmpty(t, result.Failures[1].Details)
}

func TestCreateManyStopsWhenStoreUnavailable(t *testing.T) {
	svc, repo, _ := newUserService(t)
	repo.Err = store.ErrUnavailable

	result, err := svc.CreateMany(context.Background(), []types.UserFields{
		userFields("Alex", "alex@example.com"),
		userFields("Maria", "maria@example.com"),
	})

	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Empty(t, result.Inserted)
}

func TestUpdateIsPartial(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, userFields("Alex", "alex@example.com"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, types.UserFields{Age: ptr(35)})
	require.NoError(t, err)

	assert.Equal(t, 35, updated.Age)
	assert.Equal(t, "Alex", updated.Name)
	assert.Equal(t, created.PasswordHash, updated.PasswordHash)
}

func TestUpdateRejectsEmptyBody(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Update(context.Background(), 1, types.UserFields{})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateMissingUser(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Update(context.Background(), 99, types.UserFields{Age: ptr(30)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceRequiresAllFieldsAndResetsRole(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	f := userFields("Alex", "alex@example.com")
	f.Role = ptr("Developer")
	created, err := svc.Create(ctx, f)
	require.NoError(t, err)

	_, err = svc.Replace(ctx, created.ID, types.UserFields{Age: ptr(40)})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "name")

	replaced, err := svc.Replace(ctx, created.ID, userFields("Alexander", "alexander@example.com"))
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, replaced.Role)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, created.CreatedAt, replaced.CreatedAt)
}

func TestUpdateManyCounts(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.Create(ctx, userFields("Person", email))
		require.NoError(t, err)
	}
	f := userFields("Tester", "c@example.com")
	f.Role = ptr("Tester")
	_, err := svc.Create(ctx, f)
	require.NoError(t, err)

	matched, modified, err := svc.UpdateMany(ctx, map[string]any{"name": "Person"}, types.UserFields{Role: ptr("Tester")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), matched)
	assert.Equal(t, int64(2), modified)

	matched, modified, err = svc.UpdateMany(ctx, map[string]any{"role": "Tester"}, types.UserFields{Role: ptr("Tester")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), matched)
	assert.Equal(t, int64(0), modified)
}

func TestUpdateManyRejections(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter map[string]any
		fields types.UserFields
		field  string
	}{
		{"empty filter", map[string]any{}, types.UserFields{Age: ptr(3)}, "filter"},
		{"unknown filter", map[string]any{"password": "x"}, types.UserFields{Age: ptr(3)}, "password"},
		{"empty update", map[string]any{"role": "User"}, types.UserFields{}, "body"},
		{"password", map[string]any{"role": "User"}, types.UserFields{Password: ptr("secret99")}, "password"},
		{"invalid value", map[string]any{"role": "User"}, types.UserFields{Age: ptr(500)}, "age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.UpdateMany(ctx, tt.filter, tt.fields)
			var verr validation.Errors
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr, tt.field)
		})
	}
}

func TestDeleteMany(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, userFields("Person", "a@example.com"))
	require.NoError(t, err)

	deleted, err := svc.DeleteMany(ctx, map[string]any{"email": "A@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.DeleteMany(ctx, nil)
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)
}
