package viewmodel

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/vmsync/pkg/hubtest"
)

var _ Hub = (*hubtest.Hub)(nil)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestRegistry returns a registry over a fake hub whose log output is
// captured.
func newTestRegistry(t *testing.T, hub *hubtest.Hub, opts ...RegistryOption) (*Registry, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := NewRegistry(hub, append([]RegistryOption{WithLogger(logger)}, opts...)...)
	t.Cleanup(r.Close)
	return r, logs
}

func mustConnect(t *testing.T, r *Registry, id string, c Component, opts ...Option) *Proxy {
	t.Helper()
	p, err := r.Connect(id, c, opts...)
	if err != nil {
		t.Fatalf("Connect(%q): %v", id, err)
	}
	return p
}

func expectLogged(t *testing.T, logs *syncBuffer, substr string) {
	t.Helper()
	if !strings.Contains(logs.String(), substr) {
		t.Errorf("expected log to contain %q, got:\n%s", substr, logs.String())
	}
}
