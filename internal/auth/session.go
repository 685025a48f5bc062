package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/v2"

	"github.com/articlehub/apiserver/config"
)

const (
	sessionCookieName      = "session"
	sessionCleanupInterval = 10 * time.Minute
)

// NewSessionManager configures cookie sessions. Sessions live in Postgres
// when db is set and in memory otherwise.
func NewSessionManager(cfg config.SessionConfig, db *sql.DB) *scs.SessionManager {
	sessions := scs.New()
	if db != nil {
		sessions.Store = postgresstore.NewWithCleanupInterval(db, sessionCleanupInterval)
	}

	sessions.Lifetime = cfg.Lifetime
	if sessions.Lifetime <= 0 {
		sessions.Lifetime = 24 * time.Hour
	}
	sessions.Cookie.Name = sessionCookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Persist = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.CookieSecure
	return sessions
}
