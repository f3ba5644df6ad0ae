package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stubSender struct {
	configured bool
	err        error
	sent       []Submission
}

func (s *stubSender) Configured() bool { return s.configured }

func (s *stubSender) Send(_ context.Context, sub Submission) error {
	s.sent = append(s.sent, sub)
	return s.err
}

func newTestRouter(sender Sender, opts ...Option) http.Handler {
	r := chi.NewRouter()
	NewAPI(sender, nil, opts...).RegisterRoutes(r)
	return r
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) submitResponse {
	t.Helper()
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

const validJSON = `{"name":"Ada","email":"ada@example.com","message":"Hello"}`

func TestHandleSubmit_JSON(t *testing.T) {
	s := &stubSender{configured: true}
	var results []string
	h := newTestRouter(s, WithOnResult(func(r string) { results = append(results, r) }))

	rec := postJSON(h, validJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !decodeResponse(t, rec).OK {
		t.Fatal("ok should be true")
	}
	if len(s.sent) != 1 || s.sent[0].Email != "ada@example.com" {
		t.Fatalf("sent = %+v", s.sent)
	}
	if len(results) != 1 || results[0] != ResultSent {
		t.Fatalf("results = %v", results)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestHandleSubmit_Form(t *testing.T) {
	s := &stubSender{configured: true}
	h := newTestRouter(s)

	form := url.Values{"name": {" Ada "}, "email": {"ada@example.com"}, "message": {"Hi"}}
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if s.sent[0].Name != "Ada" {
		t.Fatalf("name should be trimmed, got %q", s.sent[0].Name)
	}
}

func TestHandleSubmit_ValidationErrors(t *testing.T) {
	s := &stubSender{configured: true}
	h := newTestRouter(s)

	rec := postJSON(h, `{"name":"","email":"nope","message":"hi"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.OK || resp.Fields["name"] == "" || resp.Fields["email"] == "" {
		t.Fatalf("resp = %+v", resp)
	}
	if _, ok := resp.Fields["message"]; ok {
		t.Fatalf("message was valid: %+v", resp.Fields)
	}
	if len(s.sent) != 0 {
		t.Fatal("invalid submission must not be relayed")
	}
}

func TestHandleSubmit_BadRequests(t *testing.T) {
	h := newTestRouter(&stubSender{configured: true})

	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"malformed json", "application/json", `{"name":`, http.StatusBadRequest},
		{"no content type", "", validJSON, http.StatusUnsupportedMediaType},
		{"plain text", "text/plain", "hello", http.StatusUnsupportedMediaType},
		{"too large", "application/json", `{"message":"` + strings.Repeat("x", maxFormBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleSubmit_RelayFailure(t *testing.T) {
	for _, err := range []error{&RelayError{Status: 500}, errors.New("connection refused")} {
		s := &stubSender{configured: true, err: err}
		var result string
		h := newTestRouter(s, WithOnResult(func(r string) { result = r }))

		rec := postJSON(h, validJSON)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("%v: status = %d", err, rec.Code)
		}
		if result != ResultRelayError {
			t.Fatalf("%v: result = %q", err, result)
		}
	}
}

func TestHandleSubmit_Unconfigured(t *testing.T) {
	for _, s := range []Sender{nil, &stubSender{configured: false}, NewRelay("", 0)} {
		rec := postJSON(newTestRouter(s), validJSON)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	}
}

func TestHandleSubmit_GetNotRouted(t *testing.T) {
	h := newTestRouter(&stubSender{configured: true})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contact", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRegisterRoutes_RateLimitWrapsRoute(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	s := &stubSender{configured: true}
	rec := postJSON(newTestRouter(s, WithRateLimit(blocked)), validJSON)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(s.sent) != 0 {
		t.Fatal("limited request must not be relayed")
	}
}

func TestHandleSubmit_ThroughRealRelay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	rec := postJSON(newTestRouter(NewRelay(upstream.URL, 0)), validJSON)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}
