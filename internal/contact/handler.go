package contact

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tridenttech/trident-web/internal/log"
)

// maxFormBytes bounds a submission body; MaxMessageLen of 4-byte runes plus
// field names and encoding fits comfortably.
const maxFormBytes = 32 << 10

// Result labels passed to the OnResult hook.
const (
	ResultSent         = "sent"
	ResultInvalid      = "invalid"
	ResultBadRequest   = "bad_request"
	ResultRelayError   = "relay_error"
	ResultUnconfigured = "unconfigured"
)

// Sender delivers a submission. *Relay implements it.
type Sender interface {
	Configured() bool
	Send(ctx context.Context, s Submission) error
}

// API serves POST /api/contact.
type API struct {
	sender   Sender
	logger   log.Logger
	limit    func(http.Handler) http.Handler
	onResult func(result string)
}

type Option func(*API)

// WithRateLimit wraps the submit route only.
func WithRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(a *API) { a.limit = mw }
}

// WithOnResult is called once per request with one of the Result* labels.
func WithOnResult(fn func(result string)) Option {
	return func(a *API) { a.onResult = fn }
}

func NewAPI(sender Sender, logger log.Logger, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	a := &API{sender: sender, logger: logger}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RegisterRoutes attaches the contact endpoint to the router
func (a *API) RegisterRoutes(r chi.Router) {
	if a.limit != nil {
		r.With(a.limit).Post("/api/contact", a.HandleSubmit)
		return
	}
	r.Post("/api/contact", a.HandleSubmit)
}

type submitResponse struct {
	OK     bool              `json:"ok"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HandleSubmit validates the form and hands it to the relay.
func (a *API) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if a.sender == nil || !a.sender.Configured() {
		a.finish(ctx, w, http.StatusServiceUnavailable, ResultUnconfigured,
			submitResponse{Error: "contact form is unavailable"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	sub, status, err := decodeSubmission(r)
	if err != nil {
		a.logger.Debug(ctx, "rejected contact submission", "status", status, "reason", err.Error())
		a.finish(ctx, w, status, ResultBadRequest, submitResponse{Error: http.StatusText(status)})
		return
	}

	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		a.finish(ctx, w, http.StatusUnprocessableEntity, ResultInvalid,
			submitResponse{Error: "invalid submission", Fields: FieldErrors(err)})
		return
	}

	if err := a.sender.Send(ctx, sub); err != nil {
		var re *RelayError
		if errors.As(err, &re) {
			a.logger.Error(ctx, err, "contact relay rejected submission", "relay_status", re.Status, "relay_body", re.Body)
		} else {
			a.logger.Error(ctx, err, "contact relay failed")
		}
		a.finish(ctx, w, http.StatusBadGateway, ResultRelayError,
			submitResponse{Error: "message could not be delivered, please try again later"})
		return
	}

	a.logger.Info(ctx, "contact submission relayed", "message_len", len(sub.Message))
	a.finish(ctx, w, http.StatusOK, ResultSent, submitResponse{OK: true})
}

// decodeSubmission reads JSON or form bodies. The status is meaningful only
// with a non-nil error.
func decodeSubmission(r *http.Request) (Submission, int, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return Submission{}, http.StatusUnsupportedMediaType, err
	}

	var sub Submission
	switch mt {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return Submission{}, http.StatusRequestEntityTooLarge, err
			}
			return Submission{}, http.StatusBadRequest, err
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if mt == "multipart/form-data" {
			err = r.ParseMultipartForm(maxFormBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return Submission{}, http.StatusRequestEntityTooLarge, err
			}
			return Submission{}, http.StatusBadRequest, err
		}
		sub = Submission{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Message: r.PostFormValue("message"),
		}
	default:
		return Submission{}, http.StatusUnsupportedMediaType, errors.New("unsupported content type " + mt)
	}
	return sub, 0, nil
}

func (a *API) finish(ctx context.Context, w http.ResponseWriter, status int, result string, body submitResponse) {
	if a.onResult != nil {
		a.onResult(result)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
