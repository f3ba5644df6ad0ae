package httpmw

import (
	"context"
	"sync"

	"github.com/tridenttech/trident-web/internal/log"
)

type spyEntry struct {
	level string
	msg   string
	err   error
	kv    map[string]any
}

// spyLogger records Info and Error calls, including attrs added via With.
type spyLogger struct {
	mu      *sync.Mutex
	entries *[]spyEntry
	attrs   []any
}

func newSpyLogger() *spyLogger {
	return &spyLogger{mu: &sync.Mutex{}, entries: &[]spyEntry{}}
}

func (s *spyLogger) record(level, msg string, err error, kv []any) {
	all := append(append([]any{}, s.attrs...), kv...)
	m := map[string]any{}
	for i := 0; i+1 < len(all); i += 2 {
		if k, ok := all[i].(string); ok {
			m[k] = all[i+1]
		}
	}
	s.mu.Lock()
	*s.entries = append(*s.entries, spyEntry{level: level, msg: msg, err: err, kv: m})
	s.mu.Unlock()
}

func (s *spyLogger) With(kv ...any) log.Logger {
	return &spyLogger{mu: s.mu, entries: s.entries, attrs: append(append([]any{}, s.attrs...), kv...)}
}

func (s *spyLogger) Debug(context.Context, string, ...any) {}
func (s *spyLogger) Warn(context.Context, string, ...any)  {}
func (s *spyLogger) Sync() error                           { return nil }

func (s *spyLogger) Info(_ context.Context, msg string, kv ...any) {
	s.record("info", msg, nil, kv)
}

func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.record("error", msg, err, kv)
}

func (s *spyLogger) all() []spyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyEntry{}, *s.entries...)
}
