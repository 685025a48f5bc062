package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/types"
)

const userColumns = `id, name, email, password_hash, age, role, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	table
}

func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{table: newTable(db, timeout, query.UserSchema)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Age,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// GetByEmail expects an already lowercased address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		INSERT INTO users (name, email, password_hash, age, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Age,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, q query.Query) ([]types.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	users := []types.User{}
	err := r.Stream(ctx, q, func(user types.User) error {
		users = append(users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, filters []query.Predicate) (int64, error) {
	return r.count(ctx, filters)
}

// Stream calls fn for every user matching q, in order, without buffering the
// result. It stops at the first error fn returns.
func (r *UserRepository) Stream(ctx context.Context, q query.Query, fn func(types.User) error) error {
	stmt, args, err := r.selectSQL(userColumns, q)
	if err != nil {
		return err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return mapError(err)
		}
		if err := fn(user); err != nil {
			return err
		}
	}
	return mapError(rows.Err())
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	const query = `
		UPDATE users
		SET name = $1,
			email = $2,
			password_hash = $3,
			age = $4,
			role = $5,
			updated_at = $6
		WHERE id = $7
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Age,
		user.Role,
		user.UpdatedAt,
		user.ID,
	).Scan(&user.CreatedAt)
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, id)
}

func (r *UserRepository) UpdateMany(ctx context.Context, filters []query.Predicate, set map[string]any) (int64, int64, error) {
	return r.updateMany(ctx, filters, set)
}

func (r *UserRepository) DeleteMany(ctx context.Context, filters []query.Predicate) (int64, error) {
	return r.deleteMany(ctx, filters)
}
