package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

// ErrNotConfigured is returned by Send when no relay endpoint is set.
var ErrNotConfigured = xerrors.New("contact: relay endpoint not configured")

// RelayError is a non-2xx answer from the relay endpoint.
type RelayError struct {
	Status int
	Body   string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("contact relay returned %d", e.Status)
}

// Relay forwards submissions to a third-party form endpoint as JSON.
type Relay struct {
	endpoint string
	client   *http.Client
}

type RelayOption func(*Relay)

// WithTransport replaces the base transport under the tracing wrapper.
func WithTransport(rt http.RoundTripper) RelayOption {
	return func(r *Relay) {
		r.client.Transport = otelhttp.NewTransport(rt)
	}
}

// NewRelay returns a relay for endpoint. An empty endpoint gives a relay
// whose Send always fails with ErrNotConfigured.
func NewRelay(endpoint string, timeout time.Duration, opts ...RelayOption) *Relay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Relay{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Configured reports whether Send can do anything.
func (r *Relay) Configured() bool { return r != nil && r.endpoint != "" }

// Send posts s to the endpoint.
func (r *Relay) Send(ctx context.Context, s Submission) error {
	if !r.Configured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return xerrors.Wrap(err, "encode submission")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return xerrors.Wrap(err, "build relay request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return xerrors.Wrap(err, "post to contact relay")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// keep a little of the body for the log line
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return xerrors.WithStack(&RelayError{Status: resp.StatusCode, Body: string(snippet)})
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
