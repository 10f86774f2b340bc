package uow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/persistence"
)

var (
	ErrNoScope         = errors.New("uow: no changes scope")
	ErrScopeClosed     = errors.New("uow: changes scope is closed")
	ErrNilModel        = errors.New("uow: nil model")
	ErrNoChanges       = errors.New("uow: changes block produced no changes value")
	ErrNilPrincipal    = errors.New("uow: nil principal")
	ErrChangesConsumed = errors.New("uow: changes already persisted")
	ErrInvalidParams   = errors.New("uow: invalid params")
	ErrEncodeParams    = errors.New("uow: encode params")
)

// UsageError reports a programming error in how a unit of work uses the
// changes DSL. Scope misuse is raised as a panic carrying a *UsageError;
// the engine turns it into an ExecutionError of KindUsage.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string { return "uow: " + e.Op + ": " + e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Kind classifies an execution failure.
type Kind int

const (
	// KindRejected is a failure returned by the changes block itself.
	KindRejected Kind = iota
	KindUsage
	KindValidation
	KindSerialization
	// KindConflict means the idempotency key was already executed.
	KindConflict
	// KindStale means a model was modified concurrently.
	KindStale
	// KindTransient covers failures a caller may retry as a whole.
	KindTransient
	// KindStorage is any other persistence failure.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUsage:
		return "usage"
	case KindValidation:
		return "validation"
	case KindSerialization:
		return "serialization"
	case KindConflict:
		return "conflict"
	case KindStale:
		return "stale"
	case KindTransient:
		return "transient"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ExecutionError is returned by Runner.Execute for every failure. Nothing
// was persisted when it is returned.
type ExecutionError struct {
	UnitOfWork string
	Kind       Kind
	// ExistingID is the envelope already committed under the same key, when
	// Kind is KindConflict and it could be looked up.
	ExistingID uuid.UUID
	Attempts   int
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("uow %s: %s: %v", e.UnitOfWork, e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// KindOf returns the kind of an *ExecutionError anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return 0, false
}

func classify(err error, fallback Kind) Kind {
	var ue *UsageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, persistence.ErrUnregisteredModel),
		errors.Is(err, persistence.ErrNilModel),
		errors.Is(err, ErrChangesConsumed),
		errors.Is(err, events.ErrInvalidEvent):
		return KindUsage
	case errors.Is(err, ErrInvalidParams):
		return KindValidation
	case errors.Is(err, ErrEncodeParams), errors.Is(err, events.ErrEncodePayload):
		return KindSerialization
	case errors.Is(err, events.ErrDuplicateExecution):
		return KindConflict
	case errors.Is(err, persistence.ErrStaleRecord):
		return KindStale
	case errors.Is(err, persistence.ErrConstraint):
		return KindRejected
	case database.IsTransient(err):
		return KindTransient
	default:
		return fallback
	}
}
