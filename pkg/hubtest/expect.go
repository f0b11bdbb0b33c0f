package hubtest

import (
	"reflect"
	"testing"

	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/protocol"
)

// ExpectRequested asserts that vmID was requested exactly once.
func ExpectRequested(t *testing.T, h *Hub, vmID string) {
	t.Helper()
	if n := len(h.CallsOf(protocol.TypeRequestVM, vmID)); n != 1 {
		t.Errorf("expected 1 request for %q, got %d", vmID, n)
	}
}

// ExpectNoCalls asserts that nothing was sent for vmID.
func ExpectNoCalls(t *testing.T, h *Hub, vmID string) {
	t.Helper()
	for _, c := range h.Calls() {
		if c.VMID == vmID {
			t.Errorf("expected no calls for %q, got %s", vmID, c.Type)
		}
	}
}

// ExpectUpdate asserts that some update for vmID set field to value.
func ExpectUpdate(t *testing.T, h *Hub, vmID, field string, value any) {
	t.Helper()
	updates := h.CallsOf(protocol.TypeUpdateVM, vmID)
	for _, c := range updates {
		if v, ok := c.Value[field]; ok && reflect.DeepEqual(v, value) {
			return
		}
	}
	t.Errorf("expected update of %q.%s = %#v, got %d updates: %+v", vmID, field, value, len(updates), updates)
}

// ExpectDisposed asserts that vmID was disposed exactly once.
func ExpectDisposed(t *testing.T, h *Hub, vmID string) {
	t.Helper()
	if n := len(h.CallsOf(protocol.TypeDisposeVM, vmID)); n != 1 {
		t.Errorf("expected 1 dispose for %q, got %d", vmID, n)
	}
}

// ExpectError asserts that an error with code was passed to NotifyError.
func ExpectError(t *testing.T, h *Hub, code string) {
	t.Helper()
	errs := h.Errors()
	for _, err := range errs {
		if errors.Code(err) == code {
			return
		}
	}
	t.Errorf("expected notified error %s, got %v", code, errs)
}
