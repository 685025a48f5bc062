// Package auth resolves the caller of each request and gates access to
// protected routes.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/types"
)

// ErrInvalidCredentials is returned for any failed login. It does not say
// whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

const sessionUserKey = "uid"

// UserLookup is the part of the user store the pipeline needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// Method records how a caller was identified.
type Method string

const (
	MethodSession Method = "session"
	MethodToken   Method = "token"
)

// Caller is the identity attached to a request.
type Caller struct {
	User   types.User
	Method Method
}

type contextKey struct{}

func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// CallerFrom returns the caller resolved for the request, if any.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(contextKey{}).(*Caller)
	return caller, ok && caller != nil
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (types.User, bool) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return types.User{}, false
	}
	return caller.User, true
}

// Pipeline verifies credentials and persists identities in the session.
type Pipeline struct {
	users    UserLookup
	sessions *scs.SessionManager
	tokens   *TokenIssuer
	logger   *zap.Logger
}

func NewPipeline(users UserLookup, sessions *scs.SessionManager, tokens *TokenIssuer, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{users: users, sessions: sessions, tokens: tokens, logger: logger}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming burns roughly the time of a real comparison so unknown
// emails and wrong passwords take as long as each other.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("articlehub-timing"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// VerifyCredentials returns the user owning email when password matches.
// Store outages are returned as is so they are not mistaken for bad
// credentials.
func (p *Pipeline) VerifyCredentials(ctx context.Context, email, password string) (types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			equalizeTiming(password)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login binds user to the current session under a fresh session token.
func (p *Pipeline) Login(ctx context.Context, user types.User) error {
	if err := p.sessions.RenewToken(ctx); err != nil {
		return err
	}
	p.sessions.Put(ctx, sessionUserKey, user.ID)
	return nil
}

// Logout discards the session.
func (p *Pipeline) Logout(ctx context.Context) error {
	return p.sessions.Destroy(ctx)
}

// IssueToken returns a bearer token for API clients.
func (p *Pipeline) IssueToken(user types.User) (string, error) {
	token, _, err := p.tokens.Issue(user.ID)
	return token, err
}
