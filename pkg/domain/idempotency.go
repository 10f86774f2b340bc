package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")

// IdempotencyKey uniquely identifies one logical attempt of a unit of work.
// The zero value means "no key".
type IdempotencyKey struct {
	value uuid.UUID
}

// NewIdempotencyKey returns a random key.
func NewIdempotencyKey() IdempotencyKey {
	return IdempotencyKey{value: uuid.New()}
}

// ParseIdempotencyKey parses the textual form produced by String.
func ParseIdempotencyKey(s string) (IdempotencyKey, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return IdempotencyKey{}, fmt.Errorf("%w: %w", ErrInvalidIdempotencyKey, err)
	}
	return IdempotencyKey{value: v}, nil
}

func (k IdempotencyKey) IsZero() bool { return k.value == uuid.Nil }

func (k IdempotencyKey) String() string {
	if k.IsZero() {
		return ""
	}
	return k.value.String()
}

func (k IdempotencyKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IdempotencyKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = IdempotencyKey{}
		return nil
	}
	parsed, err := ParseIdempotencyKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
