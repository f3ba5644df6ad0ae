package sitehandler

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
)

// Handler serves the site from the active snapshot. Files in the snapshot
// win; the client-side routes fall back to index.html; everything else is
// a 404. With no snapshot every request gets the maintenance page.
type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap, ok := h.opts.Content.Get()
	if !ok {
		h.serveMaintenance(w, r)
		return
	}

	clean, ok := cleanURLPath(r.URL.Path)
	if !ok {
		h.serveNotFound(w, r, snap.FS)
		return
	}

	file, redirectTo, found := resolveFile(clean, snap.FS)
	if redirectTo != "" {
		// 308 keeps the method
		http.Redirect(w, r, redirectTo, http.StatusPermanentRedirect)
		return
	}
	if found {
		h.serveFile(w, r, snap.FS, file)
		return
	}

	switch kind, slug := h.appRoute(clean); kind {
	case routeApp:
		h.serveIndex(w, r, snap.FS)
	case routePost:
		if h.opts.Posts != nil && !h.opts.Posts.Has(slug) {
			h.serveNotFound(w, r, snap.FS)
			return
		}
		h.serveIndex(w, r, snap.FS)
	default:
		h.serveNotFound(w, r, snap.FS)
	}
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	if cc := cacheControlForFile(name, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, fsys, name)
}

// serveIndex hands a client-side route to the front end.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, fsys fs.FS) {
	if !existsFile(fsys, indexFile) {
		h.serveNotFound(w, r, fsys)
		return
	}
	w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	serveFileWithStatus(w, r, http.StatusOK, fsys, indexFile)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request, siteFS fs.FS) {
	w.Header().Set("Cache-Control", "no-store")

	if existsFile(siteFS, h.opts.Site404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, siteFS, h.opts.Site404File)
		return
	}
	if existsFile(h.opts.FallbackFS, h.opts.Fallback404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// serveFileWithStatus serves name with a fixed status. Conditional and
// range handling is skipped so a 404 can never turn into a 304 or 206.
func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(b)
	}
}
