package uow

import "github.com/Mindburn-Labs/uow/pkg/domain"

// Params is the input of a unit of work. It is serialized into the
// execution envelope with encoding/json.
type Params interface {
	IdempotencyKey() domain.IdempotencyKey
}

// Validator is implemented by params that check themselves before a unit of
// work runs. It is consulted when Options.ValidateParams is set.
type Validator interface {
	Validate() error
}

// Keyed is embedded by params that carry an idempotency key.
type Keyed struct {
	Key domain.IdempotencyKey `json:"idempotencyKey,omitzero"`
}

func (k Keyed) IdempotencyKey() domain.IdempotencyKey { return k.Key }

// Unkeyed is embedded by params without an idempotency key.
type Unkeyed struct{}

func (Unkeyed) IdempotencyKey() domain.IdempotencyKey { return domain.IdempotencyKey{} }
