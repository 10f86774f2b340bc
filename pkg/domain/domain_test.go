package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{}

type widgetRenamed struct {
	EventLog
	id ID[widget]
}

type renamed struct {
	id   ID[widget]
	Name string `json:"name"`
}

func (e renamed) ModelID() string   { return e.id.String() }
func (e renamed) ModelName() string { return "Widget" }
func (e renamed) EventName() string { return "WidgetRenamed" }

func TestNewPrincipal_RendersAnyID(t *testing.T) {
	p := NewPrincipal(42, "robot")
	assert.Equal(t, "42", p.ID())
	assert.Equal(t, "robot", p.Name())

	u := uuid.New()
	assert.Equal(t, u.String(), NewPrincipal(u, "svc").ID())
}

func TestIdempotencyKey_TextRoundTrip(t *testing.T) {
	key := NewIdempotencyKey()
	require.False(t, key.IsZero())

	raw, err := json.Marshal(struct {
		Key IdempotencyKey `json:"idempotencyKey"`
	}{key})
	require.NoError(t, err)
	assert.JSONEq(t, `{"idempotencyKey":"`+key.String()+`"}`, string(raw))

	var decoded struct {
		Key IdempotencyKey `json:"idempotencyKey"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, key, decoded.Key)
}

func TestIdempotencyKey_ZeroAndInvalid(t *testing.T) {
	var zero IdempotencyKey
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	_, err := ParseIdempotencyKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidIdempotencyKey)

	require.NoError(t, zero.UnmarshalText(nil))
	assert.True(t, zero.IsZero())
}

func TestID_IsComparableAndEncodesAsUUID(t *testing.T) {
	a := NewID[widget]()
	b, err := ParseID[widget](a.String())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"`+a.String()+`"`, string(raw))
}

func TestEventLog_TakeEventsDrains(t *testing.T) {
	m := &widgetRenamed{id: NewID[widget]()}
	m.Raise(renamed{id: m.id, Name: "a"})
	m.Raise(renamed{id: m.id, Name: "b"})

	taken := m.TakeEvents()
	require.Len(t, taken, 2)
	assert.Equal(t, "WidgetRenamed", taken[0].EventName())
	assert.Empty(t, m.TakeEvents())
}
