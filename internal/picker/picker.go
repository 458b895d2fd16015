// Package picker resolves the three configuration records for a run.
// A picker is bound to exactly one launcher and one prompt backend;
// strategies differ in where candidates come from, not in the binding
// or short-circuit rules.
package picker

import (
	"github.com/sciops/benchrun/internal/schema"
	"github.com/sciops/benchrun/internal/services"
	"github.com/sciops/benchrun/internal/ux"
)

// Picker resolves one validated configuration record per call. The
// launcher invokes the three pick operations in fixed order: session,
// then task logic, then rig. PickSession runs first so the chosen
// subject can bias PickTaskLogic.
type Picker[R, S, T schema.Config] interface {
	// Bind attaches the owning launcher. Exactly one bind is allowed.
	Bind(owner services.Owner) error

	// BindPrompter attaches the prompt backend. Exactly one bind is
	// allowed.
	BindPrompter(p ux.Prompter) error

	// Initialize prepares the strategy before any pick.
	Initialize() error

	// PickSession resolves the session record.
	PickSession() (S, error)

	// PickTaskLogic resolves the task logic record.
	PickTaskLogic() (T, error)

	// PickRig resolves the rig record.
	PickRig() (R, error)

	// Finalize runs after all three picks succeeded.
	Finalize() error
}

// DefaultPicker is the Picker shape over the standard three records.
type DefaultPicker = Picker[schema.RigConfig, schema.SessionConfig, schema.TaskLogicConfig]
