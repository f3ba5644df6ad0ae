package httpserver

import (
	"net"
	"testing"

	"github.com/go-chi/chi/v5"
)

type registrarFunc func(chi.Router)

func (f registrarFunc) RegisterRoutes(r chi.Router) { f(r) }

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
