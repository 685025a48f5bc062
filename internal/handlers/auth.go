package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/types"
)

// AuthHandler provides login, registration and identity endpoints for API
// clients. A successful login both binds the session and returns a bearer
// token.
type AuthHandler struct {
	userService *services.UserService
	pipeline    *auth.Pipeline
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, pipeline *auth.Pipeline) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		pipeline:    pipeline,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, pipeline *auth.Pipeline) {
	handler := NewAuthHandler(userService, pipeline)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(auth.RequireUser).Get("/me", handler.Me)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a User-role account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.UserFields
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.signIn(w, r, http.StatusCreated, user)
}

// Login verifies credentials and signs the user in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.pipeline.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.signIn(w, r, http.StatusOK, user)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, status int, user types.User) {
	if err := h.pipeline.Login(r.Context(), user); err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.pipeline.IssueToken(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, status, render.M{"token": token, "data": user.Profile()})
}

// Logout ends the session. Bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Logout(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, render.M{"message": "logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	writeJSON(w, r, http.StatusOK, render.M{"data": caller.User.Profile(), "method": caller.Method})
}
