package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/articlehub/apiserver/internal/events"
	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/validation"
	"github.com/articlehub/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, q query.Query) ([]types.User, error)
	Count(ctx context.Context, filters []query.Predicate) (int64, error)
	Stream(ctx context.Context, q query.Query, fn func(types.User) error) error
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int64) error
	UpdateMany(ctx context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error)
	DeleteMany(ctx context.Context, filters []query.Predicate) (int64, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	events   EventPublisher
	hashCost int
}

func NewUserService(repo UserRepository, events EventPublisher) *UserService {
	return &UserService{repo: repo, events: events, hashCost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost used for new passwords.
func (s *UserService) SetHashCost(cost int) {
	s.hashCost = cost
}

func normalizeUser(f *types.UserFields) {
	f.Name = mapString(f.Name, strings.TrimSpace)
	f.Email = mapString(f.Email, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) })
	f.Role = mapString(f.Role, strings.TrimSpace)
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validation.Errors{"password": "Password cannot exceed 72 bytes"}
		}
		return "", err
	}
	return string(hashed), nil
}

// Register creates an account through self-service sign up. The role is
// always User regardless of input.
func (s *UserService) Register(ctx context.Context, f types.UserFields) (types.User, error) {
	f.Role = nil
	user, err := s.create(ctx, f)
	if err != nil {
		return types.User{}, err
	}
	publish(s.events, ctx, events.UserRegistered, user.ID, user.Profile())
	return user, nil
}

func (s *UserService) Create(ctx context.Context, f types.UserFields) (types.User, error) {
	return s.create(ctx, f)
}

func (s *UserService) create(ctx context.Context, f types.UserFields) (types.User, error) {
	normalizeUser(&f)
	if f.Role == nil {
		role := types.RoleUser
		f.Role = &role
	}
	if err := validation.User(f, true).Err(); err != nil {
		return types.User{}, err
	}

	hashed, err := s.hashPassword(*f.Password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Name:         *f.Name,
		Email:        *f.Email,
		PasswordHash: hashed,
		Age:          *f.Age,
		Role:         *f.Role,
	})
}

// CreateMany inserts each record independently.
func (s *UserService) CreateMany(ctx context.Context, items []types.UserFields) (BulkResult[types.User], error) {
	return insertEach(ctx, items, s.create)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// List returns one page of users and the number of users matching the
// filters regardless of pagination.
func (s *UserService) List(ctx context.Context, q query.Query) ([]types.User, int64, error) {
	users, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, q.Filters)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Stream(ctx context.Context, q query.Query, fn func(types.User) error) error {
	return s.repo.Stream(ctx, q, fn)
}

// Update changes only the supplied fields.
func (s *UserService) Update(ctx context.Context, id int64, f types.UserFields) (types.User, error) {
	if f.Empty() {
		return types.User{}, emptyUpdate()
	}
	normalizeUser(&f)
	if err := validation.User(f, false).Err(); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if f.Name != nil {
		user.Name = *f.Name
	}
	if f.Email != nil {
		user.Email = *f.Email
	}
	if f.Age != nil {
		user.Age = *f.Age
	}
	if f.Role != nil {
		user.Role = *f.Role
	}
	if f.Password != nil {
		hashed, err := s.hashPassword(*f.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hashed
	}

	return s.repo.Update(ctx, user)
}

// Replace overwrites the whole record. Every required field must be supplied
// and an omitted role falls back to User.
func (s *UserService) Replace(ctx context.Context, id int64, f types.UserFields) (types.User, error) {
	normalizeUser(&f)
	if f.Role == nil {
		role := types.RoleUser
		f.Role = &role
	}
	if err := validation.User(f, true).Err(); err != nil {
		return types.User{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	hashed, err := s.hashPassword(*f.Password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Update(ctx, types.User{
		ID:           current.ID,
		Name:         *f.Name,
		Email:        *f.Email,
		PasswordHash: hashed,
		Age:          *f.Age,
		Role:         *f.Role,
		CreatedAt:    current.CreatedAt,
	})
}

// UpdateMany applies the supplied fields to every user matching filter.
// Passwords cannot be changed this way.
func (s *UserService) UpdateMany(ctx context.Context, filter map[string]any, f types.UserFields) (matched, modified int64, err error) {
	preds, err := query.ParseFilter(query.UserSchema, filter)
	if err != nil {
		return 0, 0, err
	}
	if f.Empty() {
		return 0, 0, emptyUpdate()
	}
	if f.Password != nil {
		return 0, 0, validation.Errors{"password": "Password cannot be changed in bulk"}
	}
	normalizeUser(&f)
	if err := validation.User(f, false).Err(); err != nil {
		return 0, 0, err
	}

	set := map[string]any{}
	if f.Name != nil {
		set["name"] = *f.Name
	}
	if f.Email != nil {
		set["email"] = *f.Email
	}
	if f.Age != nil {
		set["age"] = *f.Age
	}
	if f.Role != nil {
		set["role"] = *f.Role
	}

	return s.repo.UpdateMany(ctx, preds, set)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) DeleteMany(ctx context.Context, filter map[string]any) (int64, error) {
	preds, err := query.ParseFilter(query.UserSchema, filter)
	if err != nil {
		return 0, err
	}
	return s.repo.DeleteMany(ctx, preds)
}
