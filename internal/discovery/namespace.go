package discovery

import (
	"fmt"

	"ctr/internal/domain"
)

// Namespace is a node in the tree of definitions. Implementations must return
// children and definitions in a deterministic order.
type Namespace interface {
	// Name is the local name; the root namespace returns "".
	Name() string
	Children() ([]Namespace, error)
	Definitions() ([]domain.Definition, error)
}

// Error reports a namespace that could not be inspected. It aborts the run.
type Error struct {
	Namespace string
	Err       error
}

func (e *Error) Error() string {
	ns := e.Namespace
	if ns == "" {
		ns = "<root>"
	}
	return fmt.Sprintf("discovery failed in namespace %s: %v", ns, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Join extends a qualified name with a local name
func Join(qualified, local string) string {
	if qualified == "" {
		return local
	}
	if local == "" {
		return qualified
	}
	return qualified + "." + local
}
