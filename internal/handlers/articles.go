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

// ArticleHandler provides the articles API. Reads are public and writes
// need a signed-in caller.
type ArticleHandler struct {
	articleService *services.ArticleService
}

func NewArticleHandler(articleService *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

// ArticleRouter registers article routes on the given router.
func ArticleRouter(r chi.Router, articleService *services.ArticleService) {
	handler := NewArticleHandler(articleService)

	r.Get("/", handler.ListArticles)
	r.Get("/stats", handler.Stats)
	r.Get("/search", handler.SearchArticles)
	r.With(auth.RequireUser).Post("/", handler.CreateArticle)
	r.With(auth.RequireUser).Post("/many", handler.CreateArticles)
	r.With(auth.RequireUser).Patch("/", handler.UpdateArticles)
	r.With(auth.RequireUser).Delete("/", handler.DeleteArticles)
	r.Route("/{articleID}", func(r chi.Router) {
		r.Get("/", handler.GetArticle)
		r.With(auth.RequireUser).Put("/", handler.UpdateArticle)
		r.With(auth.RequireUser).Put("/replace", handler.ReplaceArticle)
		r.With(auth.RequireUser).Delete("/", handler.DeleteArticle)
	})
}

func publicArticles(articles []types.Article, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(articles))
	for _, a := range articles {
		out = append(out, query.Project(a.Public(), fields))
	}
	return out
}

// ListArticles handles GET /api/articles.
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.ArticleSchema, r.URL.Query())

	articles, total, err := h.articleService.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{
		"data":  publicArticles(articles, q.Fields),
		"count": len(articles),
		"total": total,
	})
}

// SearchArticles handles GET /api/articles/search?q=term over published
// articles.
func (h *ArticleHandler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	q := query.Shape(query.ArticleSchema, r.URL.Query())

	articles, total, err := h.articleService.Search(r.Context(), r.URL.Query().Get("q"), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{
		"data":  publicArticles(articles, q.Fields),
		"count": len(articles),
		"total": total,
	})
}

// Stats handles GET /api/articles/stats.
func (h *ArticleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articleService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"stats": stats})
}

// GetArticle handles GET /api/articles/{articleID}. Each successful fetch
// counts one view.
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "articleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := h.articleService.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": article.Public()})
}

// CreateArticle handles POST /api/articles.
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req types.ArticleFields
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := h.articleService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, render.M{"data": article.Public()})
}

// CreateArticles handles POST /api/articles/many.
func (h *ArticleHandler) CreateArticles(w http.ResponseWriter, r *http.Request) {
	batch, ok := decodeBulk[types.ArticleFields](w, r)
	if !ok {
		return
	}

	result, err := h.articleService.CreateMany(r.Context(), batch.items)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeBulk(w, r, publicArticles(result.Inserted, nil), batch.failures(result.Failures))
}

// UpdateArticle handles PUT /api/articles/{articleID} with partial semantics.
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "articleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}
	var req types.ArticleFields
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := h.articleService.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": article.Public()})
}

// ReplaceArticle handles PUT /api/articles/{articleID}/replace.
func (h *ArticleHandler) ReplaceArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "articleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}
	var req types.ArticleFields
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := h.articleService.Replace(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"data": article.Public()})
}

// UpdateArticles handles PATCH /api/articles with a {filter, update} body.
func (h *ArticleHandler) UpdateArticles(w http.ResponseWriter, r *http.Request) {
	var req bulkFilterRequest[types.ArticleFields]
	if !decodeJSON(w, r, &req) {
		return
	}

	matched, modified, err := h.articleService.UpdateMany(r.Context(), req.Filter, req.Update)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"matchedCount": matched, "modifiedCount": modified})
}

// DeleteArticle handles DELETE /api/articles/{articleID}.
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "articleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid article id")
		return
	}

	if err := h.articleService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"message": "article deleted"})
}

// DeleteArticles handles DELETE /api/articles with a {filter} body.
func (h *ArticleHandler) DeleteArticles(w http.ResponseWriter, r *http.Request) {
	var req bulkFilterRequest[struct{}]
	if !decodeJSON(w, r, &req) {
		return
	}

	deleted, err := h.articleService.DeleteMany(r.Context(), req.Filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, render.M{"deletedCount": deleted})
}
