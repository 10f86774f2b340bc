package domain

import "fmt"

// Principal identifies who initiated an operation. It is attached to every
// unit-of-work envelope and to events that need actor attribution.
type Principal interface {
	ID() string
	Name() string
}

type principal struct {
	id   string
	name string
}

func (p principal) ID() string   { return p.id }
func (p principal) Name() string { return p.name }

func (p principal) String() string {
	return fmt.Sprintf("%s(%s)", p.name, p.id)
}

// NewPrincipal builds a Principal from any id representation. The id is
// rendered with fmt.Sprint, so UUIDs, integers and named string types all work.
func NewPrincipal[T any](id T, name string) Principal {
	return principal{id: fmt.Sprint(id), name: name}
}
