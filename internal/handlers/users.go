package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/types"
)

// UserHandler provides the users API. Every route requires a signed-in
// caller; writes require the Admin role.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewUserHandler(userService)
	admin := auth.RequireRole(types.RoleAdmin)

	r.Use(auth.RequireUser)

	r.Get("/", handler.ListUsers)
	r.Get("/stream", handler.StreamUsers)
	r.With(admin).Post("/", handler.CreateUser)
	r.With(admin).Post("/many", handler.CreateUsers)
	r.With(admin).Patch("/", handler.UpdateUsers)
	r.With(admin).Delete("/", handler.DeleteUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.With(admin).Put("/", handler.UpdateUser)
		r.With(admin).Put("/replace", handler.ReplaceUser)
		r.With(admin).Delete("/", handler.DeleteUser)
	})
}

func profiles(users []types.User, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, query.Project(u.Profile(), fields))
	}
	return out
}

// ListUsers handles GET /api/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.UserSchema, r.URL.Query())

	users, total, err := h.userService.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{
		"data":  profiles(users, q.Fields),
		"count": len(users),
		"total": total,
	})
}

// StreamUsers handles GET /api/users/stream, writing the list as rows are
// read instead of buffering it.
func (h *UserHandler) StreamUsers(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.UserSchema, r.URL.Query())

	sw := newArrayStream(w, r)
	err := h.userService.Stream(r.Context(), q, func(u types.User) error {
		return sw.Write(query.Project(u.Profile(), q.Fields))
	})
	sw.Close(err)
}

// GetUser handles GET /api/users/{userID}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": user.Profile()})
}

// CreateUser handles POST /api/users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.UserFields
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, render.M{"data": user.Profile()})
}

// CreateUsers handles POST /api/users/many. The body is a JSON array and each
// element is inserted independently.
func (h *UserHandler) CreateUsers(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBulk[types.UserFields](w, r)
	if !ok {
		return
	}

	result, err := h.userService.CreateMany(r.Context(), batch.items)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeBulk(w, r, profiles(result.Inserted, nil), batch.failures(result.Failures))
}

// UpdateUser handles PUT /api/users/{userID} with partial semantics.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req types.UserFields
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": user.Profile()})
}

// ReplaceUser handles PUT /api/users/{userID}/replace.
func (h *UserHandler) ReplaceUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	var req types.UserFields
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Replace(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": user.Profile()})
}

// UpdateUsers handles PATCH /api/users with a {filter, update} body.
func (h *UserHandler) UpdateUsers(w http.ResponseWriter, r *http.Request) {
	var req bulkFilterRequest[types.UserFields]
	if !decodeJSON(w, r, &req) {
		return
	}

	matched, modified, err := h.userService.UpdateMany(r.Context(), req.Filter, req.Update)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"matchedCount": matched, "modifiedCount": modified})
}

// DeleteUser handles DELETE /api/users/{userID}.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"message": "user deleted"})
}

// DeleteUsers handles DELETE /api/users with a {filter} body.
func (h *UserHandler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	var req bulkFilterRequest[struct{}]
	if !decodeJSON(w, r, &req) {
		return
	}

	deleted, err := h.userService.DeleteMany(r.Context(), req.Filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"deletedCount": deleted})
}
