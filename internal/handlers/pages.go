package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/articlehub/apiserver/internal/auth"
	"github.com/articlehub/apiserver/internal/logging"
	"github.com/articlehub/apiserver/internal/query"
	"github.com/articlehub/apiserver/internal/services"
	"github.com/articlehub/apiserver/internal/store"
	"github.com/articlehub/apiserver/internal/validation"
	"github.com/articlehub/apiserver/types"
)

const (
	themeCookieName = "theme"
	themeCookieTTL  = 30 * 24 * time.Hour
	defaultTheme    = "light"
)

type pageData struct {
	Title string
	Theme string
	User  *types.User

	Message  string
	Error    string
	Redirect string
	Form     map[string]string

	Users    []types.User
	Subject  *types.User
	Articles []types.Article
	Article  *types.Article
	Total    int64
}

// PageHandler serves the server-rendered site.
type PageHandler struct {
	userService    *services.UserService
	articleService *services.ArticleService
	pipeline       *auth.Pipeline
}

func NewPageHandler(userService *services.UserService, articleService *services.ArticleService, pipeline *auth.Pipeline) *PageHandler {
	return &PageHandler{
		userService:    userService,
		articleService: articleService,
		pipeline:       pipeline,
	}
}

// PageRouter registers the HTML routes on the given router.
func PageRouter(r chi.Router, userService *services.UserService, articleService *services.ArticleService, pipeline *auth.Pipeline) {
	handler := NewPageHandler(userService, articleService, pipeline)

	r.Get("/", handler.Index)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/logout", handler.Logout)
	r.Post("/set-theme", handler.SetTheme)
	r.Get("/articles", handler.Articles)
	r.Get("/articles/{articleID}", handler.Article)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/users", handler.Users)
		r.Get("/users/{userID}", handler.User)
	})
}

func (h *PageHandler) data(r *http.Request, title string) *pageData {
	d := &pageData{Title: title, Theme: defaultTheme}
	if c, err := r.Cookie(themeCookieName); err == nil && (c.Value == "light" || c.Value == "dark") {
		d.Theme = c.Value
	}
	if user, ok := auth.UserFrom(r.Context()); ok {
		d.User = &user
	}
	return d
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, t *template.Template, data *pageData) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logging.FromContext(r.Context()).Errorw("render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	data := h.data(r, title)
	data.Message = message
	renderPage(w, r, status, errorTmpl, data)
}

// renderServiceError renders the page counterpart of writeServiceError.
func (h *PageHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundTitle string) {
	logger := logging.FromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, notFoundTitle, "The page you are looking for does not exist.")
	case errors.Is(err, context.Canceled):
		logger.Debugw("request cancelled", "error", err)
	case errors.Is(err, store.ErrUnavailable):
		logger.Errorw("store unavailable", "error", err)
		h.renderError(w, r, http.StatusServiceUnavailable, "Service Unavailable", "Please try again in a moment.")
	default:
		logger.Errorw("request failed", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Something Went Wrong", "An unexpected error occurred.")
	}
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "Page Not Found", "The page you are looking for does not exist.")
}

// safeRedirect accepts only local absolute paths.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, indexTmpl, h.data(r, "Home Page"))
}

func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CallerFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := h.data(r, "Login")
	if redirect := r.URL.Query().Get("redirect"); redirect != "" {
		data.Message = "Please log in to access this page"
		data.Redirect = safeRedirect(redirect)
	}
	renderPage(w, r, http.StatusOK, loginTmpl, data)
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	redirect := safeRedirect(r.PostFormValue("redirect"))

	user, err := h.pipeline.VerifyCredentials(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.renderServiceError(w, r, err, "Login")
			return
		}
		data := h.data(r, "Login")
		data.Error = "Invalid credentials"
		data.Redirect = redirect
		data.Form = map[string]string{"email": email}
		renderPage(w, r, http.StatusUnauthorized, loginTmpl, data)
		return
	}

	if err := h.pipeline.Login(r.Context(), user); err != nil {
		h.renderServiceError(w, r, err, "Login")
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *PageHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CallerFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, r, http.StatusOK, registerTmpl, h.data(r, "Register"))
}

func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{
		"name":  r.PostFormValue("name"),
		"email": r.PostFormValue("email"),
		"age":   r.PostFormValue("age"),
	}
	name, email, password := form["name"], form["email"], r.PostFormValue("password")
	fields := types.UserFields{Name: &name, Email: &email, Password: &password}
	// Non-numeric ages surface as the missing-age validation message.
	if age, err := strconv.Atoi(strings.TrimSpace(form["age"])); err == nil {
		fields.Age = &age
	}

	user, err := h.userService.Register(r.Context(), fields)
	if err != nil {
		var verr validation.Errors
		var message string
		switch {
		case errors.As(err, &verr):
			message = verr.Error()
		case errors.Is(err, store.ErrUniqueViolation):
			message = "User with this email already exists"
		default:
			h.renderServiceError(w, r, err, "Register")
			return
		}
		data := h.data(r, "Register")
		data.Error = message
		data.Form = form
		renderPage(w, r, http.StatusBadRequest, registerTmpl, data)
		return
	}

	if err := h.pipeline.Login(r.Context(), user); err != nil {
		h.renderServiceError(w, r, err, "Register")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Logout(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warnw("logout", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SetTheme stores the light or dark preference and returns to the referring
// page.
func (h *PageHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	theme := r.PostFormValue("theme")
	if theme == "light" || theme == "dark" {
		http.SetCookie(w, &http.Cookie{
			Name:     themeCookieName,
			Value:    theme,
			Path:     "/",
			MaxAge:   int(themeCookieTTL.Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}

	target := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" {
		target = safeRedirect(ref.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *PageHandler) Users(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.UserSchema, r.URL.Query())
	users, total, err := h.userService.List(r.Context(), q)
	if err != nil {
		h.renderServiceError(w, r, err, "Users List")
		return
	}

	data := h.data(r, "Users List")
	data.Users = users
	data.Total = total
	renderPage(w, r, http.StatusOK, usersTmpl, data)
}

func (h *PageHandler) User(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "User Not Found", "User with this ID does not exist")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "User Not Found", "User with this ID does not exist")
			return
		}
		h.renderServiceError(w, r, err, "User Not Found")
		return
	}

	data := h.data(r, "User: "+user.Name)
	data.Subject = &user
	renderPage(w, r, http.StatusOK, userTmpl, data)
}

func (h *PageHandler) Articles(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.ArticleSchema, r.URL.Query())
	articles, total, err := h.articleService.List(r.Context(), q)
	if err != nil {
		h.renderServiceError(w, r, err, "Articles List")
		return
	}

	data := h.data(r, "Articles List")
	data.Articles = articles
	data.Total = total
	renderPage(w, r, http.StatusOK, articlesTmpl, data)
}

// Article renders one article and counts the view.
func (h *PageHandler) Article(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "articleID")
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, "Article Not Found", "Article with this ID does not exist")
		return
	}

	article, err := h.articleService.View(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Article Not Found", "Article with this ID does not exist")
			return
		}
		h.renderServiceError(w, r, err, "Article Not Found")
		return
	}

	data := h.data(r, article.Title)
	data.Article = &article
	renderPage(w, r, http.StatusOK, articleTmpl, data)
}
