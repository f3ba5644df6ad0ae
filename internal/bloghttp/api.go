package bloghttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tridenttech/trident-web/internal/blog"
	"github.com/tridenttech/trident-web/internal/log"
)

// PostStore is the read side of blog.Store.
type PostStore interface {
	All() []blog.PostSummary
	Get(id string) (blog.Post, bool)
	ByTag(tag string) []blog.PostSummary
	Tags() []string
}

// Renderer turns a post body into HTML.
type Renderer interface {
	Render(body string) (string, error)
}

// API implements the blog JSON endpoints
type API struct {
	posts  PostStore
	render Renderer
	logger log.Logger
}

// NewAPI creates a blog API handler. render may be nil, in which case posts
// are served without html.
func NewAPI(posts PostStore, render Renderer, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		posts:  posts,
		render: render,
		logger: logger,
	}
}

// RegisterRoutes attaches blog endpoints to the router
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/posts", api.HandleListPosts)
	r.Get("/api/posts/{slug}", api.HandleGetPost)
	r.Get("/api/tags", api.HandleListTags)
	r.Get("/api/tags/{tag}/posts", api.HandlePostsByTag)
}

// PostResponse is a single post as the post page consumes it
type PostResponse struct {
	blog.Post
	FormattedDate string `json:"formattedDate"`
	HTML          string `json:"html,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleListPosts serves every post summary, newest first. ?tag= filters.
func (api *API) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	if tag := r.URL.Query().Get("tag"); tag != "" {
		api.writeJSON(r.Context(), w, http.StatusOK, api.posts.ByTag(tag))
		return
	}
	api.writeJSON(r.Context(), w, http.StatusOK, api.posts.All())
}

// HandleGetPost serves one post with its body rendered
func (api *API) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := param(r, "slug")

	p, ok := api.posts.Get(slug)
	if !ok {
		api.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "post not found"})
		return
	}

	resp := PostResponse{Post: p, FormattedDate: blog.FormatDate(p.Date)}
	if api.render != nil {
		html, err := api.render.Render(p.Body)
		if err != nil {
			// the raw body is still in the response; the page can fall back to it
			api.logger.Error(ctx, err, "render post failed", "slug", slug)
		} else {
			resp.HTML = html
		}
	}

	api.logger.Debug(ctx, "served blog post", "slug", slug)
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// HandleListTags serves the sorted category list
func (api *API) HandleListTags(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, api.posts.Tags())
}

// HandlePostsByTag serves summaries carrying a tag; unknown tags are an empty list
func (api *API) HandlePostsByTag(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, api.posts.ByTag(param(r, "tag")))
}

// param returns a decoded route parameter. chi matches on the raw path when
// one is present, so escaped segments arrive still escaped.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
