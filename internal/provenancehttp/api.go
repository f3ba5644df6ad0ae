// Package provenancehttp reports what the server is running: the build and
// the site content snapshot it serves.
package provenancehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tridenttech/trident-web/internal/content"
	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/version"
)

// SnapshotProvider defines the interface for getting content snapshots
type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// BlogStats is the part of the post store the summary reports.
type BlogStats interface {
	Len() int
	Tags() []string
}

type API struct {
	content SnapshotProvider
	blog    BlogStats
	build   version.Info
	logger  log.Logger
	now     func() time.Time
}

func NewAPI(content SnapshotProvider, blog BlogStats, build version.Info, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{content: content, blog: blog, build: build, logger: logger, now: time.Now}
}

// RegisterRoutes attaches provenance endpoints to the router
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/provenance", api.HandleProvenance)
	r.Get("/api/provenance/content", api.HandleContent)
}

type Response struct {
	Build      version.Info     `json:"build"`
	Content    *ContentResponse `json:"content,omitempty"`
	Blog       *BlogResponse    `json:"blog,omitempty"`
	ServerTime time.Time        `json:"server_time"`
}

type ContentResponse struct {
	content.Meta
	Signed   bool      `json:"signed"`
	LoadedAt time.Time `json:"loaded_at"`
}

type BlogResponse struct {
	Posts int `json:"posts"`
	Tags  int `json:"tags"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleProvenance serves build, content and blog details together.
func (api *API) HandleProvenance(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Build:      api.build,
		Content:    api.contentInfo(),
		ServerTime: api.now().UTC(),
	}
	if api.blog != nil {
		resp.Blog = &BlogResponse{Posts: api.blog.Len(), Tags: len(api.blog.Tags())}
	}
	api.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// HandleContent serves only the snapshot details, 503 before one is loaded.
func (api *API) HandleContent(w http.ResponseWriter, r *http.Request) {
	info := api.contentInfo()
	if info == nil {
		api.writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{Error: "no content loaded"})
		return
	}
	api.writeJSON(r.Context(), w, http.StatusOK, info)
}

func (api *API) contentInfo() *ContentResponse {
	if api.content == nil {
		return nil
	}
	snap, ok := api.content.Get()
	if !ok {
		return nil
	}
	return &ContentResponse{Meta: snap.Meta, Signed: snap.Meta.Signed(), LoadedAt: snap.LoadedAt.UTC()}
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
