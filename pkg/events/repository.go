package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/tracing"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

const (
	DefaultBatchSize = 500

	envelopeColumns = "id, name, principal_id, principal_name, idempotency_key, params, occurred_at, model_events"
	eventColumns    = "id, uow_id, model_id, name, model_name, occurred_at, payload, tracing_context"
	eventArity      = 8
)

// Option configures an SQLRepository.
type Option func(*SQLRepository)

// WithTracer sets the tracer whose ambient span is captured on every event
// row. Without one, tracing_context is always NULL.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *SQLRepository) { r.tracer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *SQLRepository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBatchSize caps the rows per multi-row event INSERT.
func WithBatchSize(n int) Option {
	return func(r *SQLRepository) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// SQLRepository writes envelopes and model events through the transaction
// of the txn.Context it is handed.
type SQLRepository struct {
	dialect   database.Dialect
	tracer    *tracing.Tracer
	logger    *slog.Logger
	batchSize int
}

func NewSQLRepository(dialect database.Dialect, opts ...Option) *SQLRepository {
	r := &SQLRepository{
		dialect:   dialect,
		logger:    slog.Default().With("component", "events"),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add stores ev and its model events under tc. The envelope is inserted
// first; event rows follow in recorded order only when there are any. A
// unique violation on a keyed envelope yields a *DuplicateError and no
// event rows are attempted.
func (r *SQLRepository) Add(ctx context.Context, tc *txn.Context, ev *UowEvent) error {
	if err := ev.validate(); err != nil {
		return err
	}

	var key any
	if !ev.IdempotencyKey.IsZero() {
		key = ev.IdempotencyKey.String()
	}
	params := string(ev.Params)
	if params == "" {
		params = "{}"
	}

	_, err := tc.Tx().ExecContext(ctx,
		"INSERT INTO uow_events ("+envelopeColumns+") VALUES ("+r.placeholders(1, eventArity)+")",
		ev.ID,
		ev.UowName,
		ev.Principal.ID(),
		ev.Principal.Name(),
		key,
		params,
		ev.OccurredAt,
		r.dialect.UUIDArray(ev.EventIDs()),
	)
	if err != nil {
		if key != nil && database.IsUniqueViolation(err) {
			return &DuplicateError{Key: ev.IdempotencyKey, Err: err}
		}
		return fmt.Errorf("insert uow event %s: %w", ev.ID, err)
	}

	if len(ev.ModelEvents) > 0 {
		if err := r.addModelEvents(ctx, tc, ev); err != nil {
			return err
		}
	}

	r.logger.DebugContext(ctx, "uow event stored",
		"uow_event_id", ev.ID,
		"uow", ev.UowName,
		"model_events", len(ev.ModelEvents),
	)
	return nil
}

func (r *SQLRepository) addModelEvents(ctx context.Context, tc *txn.Context, ev *UowEvent) error {
	for start := 0; start < len(ev.ModelEvents); start += r.batchSize {
		end := min(start+r.batchSize, len(ev.ModelEvents))
		batch := ev.ModelEvents[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO model_events (" + eventColumns + ") VALUES ")
		args := make([]any, 0, len(batch)*eventArity)
		for i, entry := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(" + r.placeholders(len(args)+1, eventArity) + ")")

			payload, err := json.Marshal(entry.Event)
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrEncodePayload, entry.Event.EventName(), err)
			}
			// Each row captures the span current when it is written.
			tracingContext, err := r.snapshot(ctx)
			if err != nil {
				return err
			}
			args = append(args,
				entry.ID,
				ev.ID,
				entry.Event.ModelID(),
				entry.Event.EventName(),
				entry.Event.ModelName(),
				tc.Now(),
				string(payload),
				tracingContext,
			)
		}

		if _, err := tc.Tx().ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert model events for uow event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// snapshot returns the JSON tracing context, or nil for a NULL column.
func (r *SQLRepository) snapshot(ctx context.Context) (any, error) {
	if r.tracer == nil {
		return nil, nil
	}
	snap := r.tracer.Snapshot(ctx)
	if snap == nil {
		return nil, nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode tracing context: %w", err)
	}
	return string(raw), nil
}

func (r *SQLRepository) placeholders(first, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = r.dialect.Placeholder(first + i)
	}
	return strings.Join(marks, ", ")
}

// EnvelopeRecord is a stored uow_events row.
type EnvelopeRecord struct {
	ID             uuid.UUID
	Name           string
	PrincipalID    string
	PrincipalName  string
	IdempotencyKey domain.IdempotencyKey
	Params         json.RawMessage
	OccurredAt     time.Time
	ModelEvents    []uuid.UUID
}

// EventRecord is a stored model_events row.
type EventRecord struct {
	ID             uuid.UUID
	UowID          uuid.UUID
	ModelID        string
	Name           string
	ModelName      string
	OccurredAt     time.Time
	Payload        json.RawMessage
	TracingContext tracing.Context
}

// Get loads one envelope by id.
func (r *SQLRepository) Get(ctx context.Context, q txn.Executor, id uuid.UUID) (*EnvelopeRecord, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+envelopeColumns+" FROM uow_events WHERE id = "+r.dialect.Placeholder(1), id)
	rec, err := r.scanEnvelope(row)
	if err != nil {
		return nil, fmt.Errorf("get uow event %s: %w", id, err)
	}
	return rec, nil
}

// FindByIdempotencyKey loads the envelope committed under key.
func (r *SQLRepository) FindByIdempotencyKey(ctx context.Context, q txn.Executor, key domain.IdempotencyKey) (*EnvelopeRecord, error) {
	if key.IsZero() {
		return nil, fmt.Errorf("find uow event: %w", domain.ErrInvalidIdempotencyKey)
	}
	row := q.QueryRowContext(ctx,
		"SELECT "+envelopeColumns+" FROM uow_events WHERE idempotency_key = "+r.dialect.Placeholder(1), key.String())
	rec, err := r.scanEnvelope(row)
	if err != nil {
		return nil, fmt.Errorf("find uow event by key %s: %w", key, err)
	}
	return rec, nil
}

// ModelEvents lists the events of one envelope in recorded order.
func (r *SQLRepository) ModelEvents(ctx context.Context, q txn.Executor, uowID uuid.UUID) ([]*EventRecord, error) {
	env, err := r.Get(ctx, q, uowID)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM model_events WHERE uow_id = "+r.dialect.Placeholder(1), uowID)
	if err != nil {
		return nil, fmt.Errorf("list model events of %s: %w", uowID, err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*EventRecord, len(env.ModelEvents))
	for rows.Next() {
		var (
			rec     EventRecord
			payload []byte
			tc      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UowID, &rec.ModelID, &rec.Name, &rec.ModelName, &rec.OccurredAt, &payload, &tc); err != nil {
			return nil, fmt.Errorf("scan model event: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		if tc.Valid {
			if err := json.Unmarshal([]byte(tc.String), &rec.TracingContext); err != nil {
				return nil, fmt.Errorf("corrupt tracing context in model event %s: %w", rec.ID, err)
			}
		}
		byID[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The envelope array holds the recorded order.
	out := make([]*EventRecord, 0, len(byID))
	for _, id := range env.ModelEvents {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *SQLRepository) scanEnvelope(row *sql.Row) (*EnvelopeRecord, error) {
	var (
		rec    EnvelopeRecord
		key    sql.NullString
		params []byte
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.PrincipalID, &rec.PrincipalName, &key, &params, &rec.OccurredAt,
		r.dialect.ScanUUIDArray(&rec.ModelEvents))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if key.Valid {
		k, err := domain.ParseIdempotencyKey(key.String)
		if err != nil {
			return nil, err
		}
		rec.IdempotencyKey = k
	}
	rec.Params = json.RawMessage(params)
	return &rec, nil
}
