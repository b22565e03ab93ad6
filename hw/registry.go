package hw

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gpucontext"
)

// Backend names.
const (
	BackendNV04 = "nv04"
	BackendNV05 = "nv05"
)

// backends holds registered backend factories. Later chips are preferred.
var backends = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(BackendNV05, BackendNV04),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory func() Backend) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	names := backends.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	return backends.Get(name)
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() Backend {
	return backends.Best()
}

// Open returns the named backend, or the default one for an empty name.
func Open(name string) (Backend, error) {
	var b Backend
	if name == "" {
		b = Default()
	} else {
		b = Get(name)
	}
	if b == nil {
		if name == "" {
			return nil, ErrBackendNotAvailable
		}
		return nil, &NotAvailableError{Name: name, Available: Available()}
	}
	return b, nil
}

// NotAvailableError reports an unknown backend name.
type NotAvailableError struct {
	Name      string
	Available []string
}

func (e *NotAvailableError) Error() string {
	avail := "none"
	if len(e.Available) > 0 {
		avail = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("hw: backend %q not available (registered: %s)", e.Name, avail)
}

// Unwrap returns ErrBackendNotAvailable.
func (e *NotAvailableError) Unwrap() error { return ErrBackendNotAvailable }
