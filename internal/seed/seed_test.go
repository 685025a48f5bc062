package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/internal/services/servicetest"
)

func newSeeder() (*Seeder, *services.UserService) {
	users := services.NewUserService(servicetest.NewUserRepo(), nil)
	users.SetHashCost(bcrypt.MinCost)
	articles := services.NewArticleService(servicetest.NewArticleRepo(), nil)
	return NewSeeder(users, articles, nil), users
}

func TestRunSeedsEmptyStoreOnce(t *testing.T) {
	seeder, users := newSeeder()
	ctx := context.Background()

	report, err := seeder.Run(ctx, Options{ExtraUsers: 10, ExtraArticles: 6, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, 15, report.Users)
	assert.Equal(t, 10, report.Articles)
	assert.Empty(t, report.Failures)

	alex, err := users.GetByEmail(ctx, "alex@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(alex.PasswordHash), []byte(DemoPassword)))

	report, err = seeder.Run(ctx, Options{ExtraUsers: 10, ExtraArticles: 6, Seed: 7})
	require.NoError(t, err)
	assert.Zero(t, report.Users)
	assert.Zero(t, report.Articles)
}

func TestDemoDataIsDeterministic(t *testing.T) {
	first := demoUsers(newRand(3), 5)
	second := demoUsers(newRand(3), 5)
	require.Len(t, first, 10)
	for i := range first {
		assert.Equal(t, *first[i].Email, *second[i].Email)
	}
}
