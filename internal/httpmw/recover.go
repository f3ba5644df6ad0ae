package httpmw

import (
	"net/http"

	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// Recover turns a handler panic into a logged error and a 500. onPanic, if
// set, is called once per recovered panic (metrics). http.ErrAbortHandler is
// re-panicked so net/http can abort the connection as intended.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if onPanic != nil {
					onPanic()
				}

				var err error
				switch v := rec.(type) {
				case error:
					err = xerrors.Wrap(v, "handler panic")
				default:
					err = xerrors.Newf("handler panic: %v", v)
				}
				logger.Error(r.Context(), err, "recovered from panic",
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
				)

				// headers may already be out; this is best effort
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
