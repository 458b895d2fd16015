// Package resource provides the declarative resource-constraint evaluator
// consulted during environment validation. A constraint is a pure, named,
// argument-bound predicate plus a failure-message producer; the monitor
// holds an ordered list and evaluates it short-circuit.
//
// Constraints are evaluated once at validation time, not continuously
// monitored. The gap between validation and actual run-time disk usage is
// an accepted race window.
package resource

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// Constraint is a stateless, synchronous check with a failure message.
type Constraint struct {
	Name    string
	Check   func() bool
	FailMsg func() string
}

// OnFail returns the constraint's failure message.
func (c Constraint) OnFail() string {
	if c.FailMsg != nil {
		return c.FailMsg()
	}
	return "constraint " + c.Name + " failed"
}

// Monitor evaluates an ordered constraint list.
type Monitor struct {
	constraints []Constraint
	logger      *logging.Logger
}

// NewMonitor creates a monitor over the given constraints.
func NewMonitor(logger *logging.Logger, constraints ...Constraint) *Monitor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Monitor{
		constraints: constraints,
		logger:      logger,
	}
}

// Add appends a constraint to the evaluation order.
func (m *Monitor) Add(c Constraint) {
	m.constraints = append(m.constraints, c)
}

// Evaluate runs the constraints in order. It logs the first failing
// constraint's message and returns false immediately; it returns true
// only if every constraint passes.
func (m *Monitor) Evaluate() bool {
	for _, c := range m.constraints {
		if !c.Check() {
			m.logger.Error(c.OnFail(), "constraint", c.Name)
			return false
		}
	}
	return true
}

// Validate implements the service capability: evaluation failure is
// reported as ErrConstraintFailed.
func (m *Monitor) Validate() error {
	if !m.Evaluate() {
		return errors.ErrConstraintFailed
	}
	return nil
}

// -----------------------------------------------------------------------------
// Standard constraint factories
// -----------------------------------------------------------------------------

// FreeBytesFunc reports the free bytes on the filesystem holding path.
type FreeBytesFunc func(path string) (uint64, error)

// statfsFree is the production probe: Statfs on the nearest existing
// ancestor of the requested path.
func statfsFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(nearestExisting(path), &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// nearestExisting walks up from path to the closest ancestor that exists,
// so a data directory that has not been created yet still resolves to its
// drive.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// AvailableStorage returns a constraint requiring at least minBytes free
// on the drive holding path.
func AvailableStorage(path string, minBytes uint64) Constraint {
	return AvailableStorageWith(path, minBytes, statfsFree)
}

// AvailableStorageWith is AvailableStorage with an injectable probe.
func AvailableStorageWith(path string, minBytes uint64, free FreeBytesFunc) Constraint {
	return Constraint{
		Name: "available_storage",
		Check: func() bool {
			got, err := free(path)
			if err != nil {
				return false
			}
			return got >= minBytes
		},
		FailMsg: func() string {
			return "drive " + nearestExisting(path) + " holding " + path + " does not have enough space"
		},
	}
}

// RemoteDirExists returns a constraint requiring the possibly-networked
// directory to exist. The existence check runs on a short-lived worker
// bounded by timeout; a probe that does not answer in time counts as a
// failure and is never retried.
func RemoteDirExists(dir string, timeout time.Duration) Constraint {
	return Constraint{
		Name: "remote_dir_exists",
		Check: func() bool {
			done := make(chan bool, 1)
			go func() {
				info, err := os.Stat(dir)
				done <- err == nil && info.IsDir()
			}()
			select {
			case ok := <-done:
				return ok
			case <-time.After(timeout):
				// Abandon the stuck stat; a hung network mount must not
				// hang validation.
				return false
			}
		},
		FailMsg: func() string {
			return "directory " + dir + " does not exist or is unreachable"
		},
	}
}
