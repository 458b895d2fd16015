package services

import (
	"sort"
	"sync"

	"github.com/sciops/benchrun/internal/app"
	"github.com/sciops/benchrun/internal/datamapper"
	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/resource"
	"github.com/sciops/benchrun/internal/transfer"
)

// Canonical service names. The app adapter is the only required service.
const (
	NameApp             = "app"
	NameDataMapper      = "data_mapper"
	NameDataTransfer    = "data_transfer"
	NameResourceMonitor = "resource_monitor"
)

// Manager holds named service factories and resolves them lazily against
// its bound owner. A manager binds to exactly one launcher for its
// lifetime; rebinding is an error.
type Manager struct {
	mu        sync.Mutex
	owner     Owner
	factories map[string]*Factory
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{factories: make(map[string]*Factory)}
}

// RegisterOwner binds the manager to its launcher. Exactly one bind is
// allowed.
func (m *Manager) RegisterOwner(owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner != nil {
		return errors.NewServiceError("manager already bound to a launcher", errors.ErrOwnerBound)
	}
	m.owner = owner
	return nil
}

// Attach registers a named factory. Registering a name twice is an
// error; callers must Detach explicitly first. This surfaces wiring
// mistakes at setup time instead of silently replacing a service.
func (m *Manager) Attach(name string, factory *Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.factories[name]; exists {
		return errors.NewServiceError("duplicate registration", errors.ErrServiceRegistered).WithService(name)
	}
	m.factories[name] = factory
	return nil
}

// AttachService registers an already-constructed service under name.
func (m *Manager) AttachService(name string, service Service) error {
	return m.Attach(name, Prebuilt(service))
}

// AttachConstructor registers a deferred constructor under name.
func (m *Manager) AttachConstructor(name string, construct Constructor) error {
	return m.Attach(name, NewFactory(construct))
}

// Detach removes a named factory. Detaching an unregistered name is an
// error.
func (m *Manager) Detach(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.factories[name]; !exists {
		return errors.NewServiceError("cannot detach", errors.ErrServiceNotRegistered).WithService(name)
	}
	delete(m.factories, name)
	return nil
}

// Get resolves a service by name, building it if needed. It returns
// (nil, nil) for an unregistered name; required-service accessors must
// convert that into an explicit "not configured" error.
func (m *Manager) Get(name string) (Service, error) {
	m.mu.Lock()
	factory, exists := m.factories[name]
	owner := m.owner
	m.mu.Unlock()

	if !exists {
		return nil, nil
	}
	if owner == nil {
		return nil, errors.NewServiceError("manager is not bound to a launcher", nil).WithService(name)
	}
	return factory.Build(owner)
}

// Names returns the registered service names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------
// Typed accessors
// -----------------------------------------------------------------------------

// App returns the external app adapter. The adapter is mandatory:
// a missing registration is ErrServiceNotConfigured, the wrong type is
// ErrServiceTypeMismatch.
func (m *Manager) App() (app.App, error) {
	service, err := m.Get(NameApp)
	if err != nil {
		return nil, err
	}
	if service == nil {
		return nil, errors.NewServiceError("app adapter is required", errors.ErrServiceNotConfigured).WithService(NameApp)
	}
	typed, ok := service.(app.App)
	if !ok {
		return nil, errors.NewServiceError("registered service is not an app adapter", errors.ErrServiceTypeMismatch).WithService(NameApp)
	}
	return typed, nil
}

// DataMapper returns the optional data mapper, or (nil, nil) when none
// is registered.
func (m *Manager) DataMapper() (datamapper.Mapper, error) {
	service, err := m.Get(NameDataMapper)
	if err != nil || service == nil {
		return nil, err
	}
	typed, ok := service.(datamapper.Mapper)
	if !ok {
		return nil, errors.NewServiceError("registered service is not a data mapper", errors.ErrServiceTypeMismatch).WithService(NameDataMapper)
	}
	return typed, nil
}

// DataTransfer returns the optional data transfer service, or (nil, nil)
// when none is registered.
func (m *Manager) DataTransfer() (transfer.Transfer, error) {
	service, err := m.Get(NameDataTransfer)
	if err != nil || service == nil {
		return nil, err
	}
	typed, ok := service.(transfer.Transfer)
	if !ok {
		return nil, errors.NewServiceError("registered service is not a data transfer service", errors.ErrServiceTypeMismatch).WithService(NameDataTransfer)
	}
	return typed, nil
}

// ResourceMonitor returns the optional resource monitor, or (nil, nil)
// when none is registered.
func (m *Manager) ResourceMonitor() (*resource.Monitor, error) {
	service, err := m.Get(NameResourceMonitor)
	if err != nil || service == nil {
		return nil, err
	}
	typed, ok := service.(*resource.Monitor)
	if !ok {
		return nil, errors.NewServiceError("registered service is not a resource monitor", errors.ErrServiceTypeMismatch).WithService(NameResourceMonitor)
	}
	return typed, nil
}
