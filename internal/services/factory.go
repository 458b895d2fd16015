// Package services provides the lazy, memoized, typed service registry
// bound to one launcher. Experiment setups vary which optional services
// are present; the external app adapter is the only mandatory one. Lazy
// construction defers expensive setup until the launcher and its resolved
// configuration are available, since constructors frequently need a
// back-reference to the launcher (for the resolved session directory, the
// temp workspace, and so on).
package services

import (
	"sync"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// Service is a named capability registered with the manager. Every
// service can be validated during environment validation.
type Service interface {
	Validate() error
}

// Owner is the launcher surface visible to deferred service constructors.
// The concrete launcher satisfies it; tests substitute a stub.
type Owner interface {
	// TempDir returns the run's temp workspace.
	TempDir() string
	// SessionDirectory returns the permanent session data directory.
	// It errors before the session configuration is resolved.
	SessionDirectory() (string, error)
	// Log returns the run logger.
	Log() *logging.Logger
}

// Constructor builds a service from its owning launcher.
type Constructor func(Owner) (Service, error)

// Factory wraps either a pre-built Service or a deferred Constructor.
// A factory is an explicit two-state cell: Unbuilt(constructor) or
// Built(instance). The building flag guards against a constructor
// re-entering Build for its own service.
type Factory struct {
	mu        sync.Mutex
	construct Constructor
	service   Service
	built     bool
	building  bool
}

// NewFactory creates a factory that builds its service on first access.
func NewFactory(construct Constructor) *Factory {
	return &Factory{construct: construct}
}

// Prebuilt creates a factory around an already-constructed service.
func Prebuilt(service Service) *Factory {
	return &Factory{service: service, built: true}
}

// Build returns the cached instance if already built; otherwise it calls
// the deferred constructor with the owning launcher and caches the
// result. Construction happens at most once per factory per process,
// even when the constructor returns an error on a later retry path.
func (f *Factory) Build(owner Owner) (Service, error) {
	f.mu.Lock()
	if f.built {
		service := f.service
		f.mu.Unlock()
		return service, nil
	}
	if f.building {
		f.mu.Unlock()
		return nil, errors.NewServiceError("constructor re-entered its own build", errors.ErrReentrantBuild)
	}
	if f.construct == nil {
		f.mu.Unlock()
		return nil, errors.NewServiceError("factory has neither a service nor a constructor", nil)
	}
	f.building = true
	f.mu.Unlock()

	// The lock is released during construction so a self-referential
	// constructor hits the building guard instead of deadlocking.
	service, err := f.construct(owner)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.building = false
	if err != nil {
		return nil, err
	}
	f.service = service
	f.built = true
	return service, nil
}

// Built reports whether the service has been constructed.
func (f *Factory) Built() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built
}
