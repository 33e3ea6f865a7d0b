package config

import (
	"fmt"
	"strings"
	"sync"
)

// Backend names a provider backend.
type Backend string

const (
	BackendShapes Backend = "shapes"
	BackendGemini Backend = "gemini"
)

// ClientImpl names a Shapes client implementation.
type ClientImpl string

const (
	ClientSDK ClientImpl = "sdk"
	ClientRaw ClientImpl = "raw"
)

// Runtime owns the mutable process-wide knobs: the trigger word pair,
// the diagnostic logging flag, which backend is primary, and which
// Shapes client implementation is active. Reads happen on every
// message, writes only on administrative actions; last write wins.
type Runtime struct {
	mu               sync.RWMutex
	triggerPrimary   string
	triggerSecondary string
	diagnostics      bool
	primaryBackend   Backend
	shapesClient     ClientImpl
}

// NewRuntime creates runtime state seeded from file config defaults.
func NewRuntime(triggerWord string) *Runtime {
	rt := &Runtime{
		diagnostics:    true,
		primaryBackend: BackendShapes,
		shapesClient:   ClientSDK,
	}
	rt.SetTriggerWord(triggerWord)
	return rt
}

// SetTriggerWord installs a new trigger word, deriving both the spaced
// primary form and the whitespace-collapsed secondary form.
func (rt *Runtime) SetTriggerWord(word string) {
	primary := strings.ToLower(strings.TrimSpace(word))
	secondary := strings.Join(strings.Fields(primary), "")
	rt.mu.Lock()
	rt.triggerPrimary = primary
	rt.triggerSecondary = secondary
	rt.mu.Unlock()
}

// TriggerWords returns the current primary and secondary trigger forms.
func (rt *Runtime) TriggerWords() (primary, secondary string) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.triggerPrimary, rt.triggerSecondary
}

// TriggerWord returns a display form of the configured trigger pair.
func (rt *Runtime) TriggerWord() string {
	primary, secondary := rt.TriggerWords()
	return primary + " | " + secondary
}

// SetDiagnostics toggles diagnostic logging of provider failures.
func (rt *Runtime) SetDiagnostics(enabled bool) {
	rt.mu.Lock()
	rt.diagnostics = enabled
	rt.mu.Unlock()
}

// DiagnosticsEnabled reports whether diagnostic logging is on.
func (rt *Runtime) DiagnosticsEnabled() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.diagnostics
}

// SetPrimaryBackend selects which backend is tried first.
func (rt *Runtime) SetPrimaryBackend(backend Backend) error {
	switch backend {
	case BackendShapes, BackendGemini:
	default:
		return fmt.Errorf("invalid backend %q, use %q or %q", backend, BackendShapes, BackendGemini)
	}
	rt.mu.Lock()
	rt.primaryBackend = backend
	rt.mu.Unlock()
	return nil
}

// PrimaryBackend returns the backend currently tried first.
func (rt *Runtime) PrimaryBackend() Backend {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.primaryBackend
}

// SetShapesClient selects the active Shapes client implementation.
func (rt *Runtime) SetShapesClient(impl ClientImpl) error {
	switch impl {
	case ClientSDK, ClientRaw:
	default:
		return fmt.Errorf("invalid client %q, use %q or %q", impl, ClientSDK, ClientRaw)
	}
	rt.mu.Lock()
	rt.shapesClient = impl
	rt.mu.Unlock()
	return nil
}

// ShapesClient returns the active Shapes client implementation.
func (rt *Runtime) ShapesClient() ClientImpl {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.shapesClient
}
