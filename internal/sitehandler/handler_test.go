package sitehandler

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tridenttech/trident-web/internal/content"
	"github.com/tridenttech/trident-web/internal/log"
)

func testFallbackFS() fs.FS {
	return fstest.MapFS{
		"maintenance.html": {Data: []byte("<h1>Maintenance</h1>")},
		"404.html":         {Data: []byte("<h1>Fallback 404</h1>")},
	}
}

func testSiteFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":           {Data: []byte("<div id=root></div>")},
		"404.html":             {Data: []byte("<h1>Site 404</h1>")},
		"assets/app-4f2a.js":   {Data: []byte("console.log('hi')")},
		"assets/app-4f2a.css":  {Data: []byte("body{}")},
		"robots.txt":           {Data: []byte("User-agent: *")},
		"legal/index.html":     {Data: []byte("<h1>Legal</h1>")},
		"blog/hello-world.md":  {Data: []byte("---\ntitle: Hello\n---\nbody")},
		"blog/second-post.md":  {Data: []byte("---\ntitle: Second\n---\nbody")},
		"images/team/logo.svg": {Data: []byte("<svg/>")},
	}
}

type stubProvider struct {
	snap *content.Snapshot
	ok   bool
}

func (s *stubProvider) Get() (*content.Snapshot, bool) { return s.snap, s.ok }

func activeProvider(fsys fs.FS) *stubProvider {
	return &stubProvider{snap: &content.Snapshot{FS: fsys}, ok: true}
}

type stubPosts map[string]bool

func (s stubPosts) Has(slug string) bool { return s[slug] }

func newTestHandler(t *testing.T, opts Options) *Handler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Content == nil {
		opts.Content = activeProvider(testSiteFS())
	}
	if opts.FallbackFS == nil {
		opts.FallbackFS = testFallbackFS()
	}
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"nil content", Options{FallbackFS: testFallbackFS()}, "Content is nil"},
		{"nil fallback", Options{Content: activeProvider(testSiteFS())}, "FallbackFS is nil"},
		{"no maintenance page", Options{Content: activeProvider(testSiteFS()), FallbackFS: fstest.MapFS{}}, "maintenance.html"},
		{"relative app route", Options{Content: activeProvider(testSiteFS()), FallbackFS: testFallbackFS(), AppRoutes: []string{"about"}}, "must start with /"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestServeHTTP_AppRoutesServeIndex(t *testing.T) {
	h := newTestHandler(t, Options{Posts: stubPosts{"hello-world": true}})

	for _, p := range []string{"/", "/about", "/services", "/contact", "/blog", "/blog/", "/about/", "/blog/hello-world"} {
		t.Run(p, func(t *testing.T) {
			rec := serve(h, http.MethodGet, p)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "id=root") {
				t.Fatalf("body = %q", rec.Body.String())
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Fatalf("Cache-Control = %q", cc)
			}
		})
	}
}

func TestServeHTTP_UnknownPostIs404(t *testing.T) {
	h := newTestHandler(t, Options{Posts: stubPosts{"hello-world": true}})

	rec := serve(h, http.MethodGet, "/blog/no-such-post")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Site 404") {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("404 should not be cached")
	}
}

func TestServeHTTP_PostsNilHandsEverySlugToFrontEnd(t *testing.T) {
	h := newTestHandler(t, Options{})
	if rec := serve(h, http.MethodGet, "/blog/anything"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServeHTTP_NestedBlogPathIs404(t *testing.T) {
	h := newTestHandler(t, Options{Posts: stubPosts{"hello-world": true}})
	for _, p := range []string{"/blog/hello-world/extra", "/blog/hello-world.json", "/services/extra"} {
		if rec := serve(h, http.MethodGet, p); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", p, rec.Code)
		}
	}
}

func TestServeHTTP_MarkdownSourceServedAsFile(t *testing.T) {
	h := newTestHandler(t, Options{Posts: stubPosts{}})
	rec := serve(h, http.MethodGet, "/blog/hello-world.md")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "title: Hello") {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestServeHTTP_StaticFiles(t *testing.T) {
	h := newTestHandler(t, Options{})
	tests := []struct {
		path string
		cc   string
	}{
		{"/assets/app-4f2a.js", "public, max-age=31536000, immutable"},
		{"/assets/app-4f2a.css", "public, max-age=31536000, immutable"},
		{"/images/team/logo.svg", "public, max-age=31536000, immutable"},
		{"/robots.txt", "public, max-age=3600"},
		{"/legal/", "no-cache"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.cc {
				t.Fatalf("Cache-Control = %q, want %q", got, tt.cc)
			}
		})
	}
}

func TestServeHTTP_DirectoryRedirect(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := serve(h, http.MethodGet, "/legal")
	if rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "/legal/" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, Options{})
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		rec := serve(h, m, "/")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d", m, rec.Code)
		}
		if rec.Header().Get("Allow") != "GET, HEAD" || rec.Body.Len() != 0 {
			t.Errorf("%s: Allow = %q body = %q", m, rec.Header().Get("Allow"), rec.Body.String())
		}
	}
}

func TestServeHTTP_HeadHasNoBody(t *testing.T) {
	h := newTestHandler(t, Options{})
	rec := serve(h, http.MethodHead, "/about")
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestServeHTTP_Maintenance(t *testing.T) {
	h := newTestHandler(t, Options{Content: &stubProvider{}})
	for _, p := range []string{"/", "/blog/hello-world", "/assets/app.js"} {
		rec := serve(h, http.MethodGet, p)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status = %d", p, rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("Cache-Control") != "no-store" {
			t.Fatalf("%s: headers = %v", p, rec.Header())
		}
		if !strings.Contains(rec.Body.String(), "Maintenance") {
			t.Fatalf("%s: body = %q", p, rec.Body.String())
		}
	}
}

func TestServeHTTP_NotFoundFallbacks(t *testing.T) {
	t.Run("site 404", func(t *testing.T) {
		rec := serve(newTestHandler(t, Options{}), http.MethodGet, "/nope.html")
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Site 404") {
			t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
		}
	})
	t.Run("fallback 404", func(t *testing.T) {
		site := testSiteFS()
		delete(site, "404.html")
		rec := serve(newTestHandler(t, Options{Content: activeProvider(site)}), http.MethodGet, "/nope")
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Fallback 404") {
			t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
		}
	})
	t.Run("plain text", func(t *testing.T) {
		site := testSiteFS()
		delete(site, "404.html")
		fallback := fstest.MapFS{"maintenance.html": {Data: []byte("m")}}
		rec := serve(newTestHandler(t, Options{Content: activeProvider(site), FallbackFS: fallback}), http.MethodGet, "/nope")
		if rec.Code != http.StatusNotFound || rec.Body.String() != "404 page not found" {
			t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
		}
	})
}

func TestServeHTTP_NotFoundIgnoresConditionalHeaders(t *testing.T) {
	h := newTestHandler(t, Options{Posts: stubPosts{}})
	req := httptest.NewRequest(http.MethodGet, "/blog/missing", nil)
	req.Header.Set("If-Modified-Since", "Mon, 01 Jan 2035 00:00:00 GMT")
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServeHTTP_UnsafePaths(t *testing.T) {
	h := newTestHandler(t, Options{})
	for _, p := range []string{"/../etc/passwd", "/assets/../index.html", "/a\\b", "/./index.html"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = p
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%q: status = %d, want 404", p, rec.Code)
		}
	}
}

func TestCleanURLPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "/", true},
		{"/", "/", true},
		{"about", "/about", true},
		{"/blog/", "/blog/", true},
		{"//blog//post", "/blog/post", true},
		{"/blog/../x", "", false},
		{"/a/./b", "", false},
		{"/a\x00b", "", false},
	}
	for _, tt := range tests {
		got, ok := cleanURLPath(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("cleanURLPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAppRoute(t *testing.T) {
	h := newTestHandler(t, Options{AppRoutes: []string{"/about", "/work/"}, BlogPrefix: "/writing"})
	tests := []struct {
		path string
		kind routeKind
		slug string
	}{
		{"/", routeApp, ""},
		{"/about", routeApp, ""},
		{"/work", routeApp, ""},
		{"/work/", routeApp, ""},
		{"/writing/first", routePost, "first"},
		{"/writing/first/", routePost, "first"},
		{"/writing", routeNone, ""},
		{"/blog/first", routeNone, ""},
		{"/services", routeNone, ""},
	}
	for _, tt := range tests {
		kind, slug := h.appRoute(tt.path)
		if kind != tt.kind || slug != tt.slug {
			t.Errorf("appRoute(%q) = %v %q, want %v %q", tt.path, kind, slug, tt.kind, tt.slug)
		}
	}
}

func TestHandler_ImplementsHTTPHandler(t *testing.T) {
	var _ http.Handler = (*Handler)(nil)
}
