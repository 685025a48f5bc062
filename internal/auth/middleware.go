package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/store"
)

// Authenticate resolves the caller from the session, then from a bearer
// token, and attaches it to the request context. Any failure leaves the
// request anonymous. It must run inside the session manager's LoadAndSave.
func (p *Pipeline) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := p.resolve(r); caller != nil {
			r = r.WithContext(WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Pipeline) resolve(r *http.Request) *Caller {
	ctx := r.Context()

	if id := p.sessions.GetInt64(ctx, sessionUserKey); id > 0 {
		user, err := p.users.GetByID(ctx, id)
		if err == nil {
			return &Caller{User: user, Method: MethodSession}
		}
		p.logger.Debug("session user not resolved", zap.Int64("user_id", id), zap.Error(err))
		if !errors.Is(err, store.ErrNotFound) {
			// Keep the session; the caller is anonymous for this request only.
			return nil
		}
		p.sessions.Remove(ctx, sessionUserKey)
	}

	raw, err := bearerToken(r)
	if err != nil {
		return nil
	}
	id, err := p.tokens.Parse(raw)
	if err != nil {
		p.logger.Debug("bearer token rejected", zap.Error(err))
		return nil
	}
	user, err := p.users.GetByID(ctx, id)
	if err != nil {
		p.logger.Debug("token user not resolved", zap.Int64("user_id", id), zap.Error(err))
		return nil
	}
	return &Caller{User: user, Method: MethodToken}
}

// LoginPath builds the login URL that returns the caller to target.
func LoginPath(target string) string {
	if target == "" {
		return "/login"
	}
	return "/login?redirect=" + url.QueryEscape(target)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// RequireUser lets authenticated requests through. Pages redirect to the
// login form; API calls get 401 with the same redirect hint.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		deny(w, r)
	})
}

// RequireRole lets through only callers holding role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				deny(w, r)
				return
			}
			if caller.User.Role != role {
				if wantsJSON(r) {
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, map[string]any{"success": false, "error": "insufficient permissions"})
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request) {
	redirect := LoginPath(r.URL.RequestURI())
	if wantsJSON(r) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]any{
			"success":  false,
			"error":    "authentication required",
			"redirect": redirect,
		})
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
