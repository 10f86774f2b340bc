package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/events"
	"github.com/Mindburn-Labs/uow/pkg/tracing"
)

type shownEvent struct {
	ID        uuid.UUID       `json:"id"`
	ModelID   string          `json:"modelId"`
	ModelName string          `json:"modelName"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Tracing   tracing.Context `json:"tracingContext,omitempty"`
}

type shownEnvelope struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	PrincipalID    string          `json:"principalId"`
	PrincipalName  string          `json:"principalName"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Params         json.RawMessage `json:"params"`
	OccurredAt     time.Time       `json:"occurredAt"`
	ModelEvents    []shownEvent    `json:"modelEvents"`
}

func newShowCmd(g *globals) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "show [uow-event-id]",
		Short: "Print an execution envelope and its model events",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (key != "") {
				return errors.New("pass either an envelope id or --key")
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				env, err := lookupEnvelope(ctx, a, args, key)
				if err != nil {
					return err
				}
				evs, err := a.events.ModelEvents(ctx, a.db, env.ID)
				if err != nil {
					return err
				}

				out := shownEnvelope{
					ID:            env.ID,
					Name:          env.Name,
					PrincipalID:   env.PrincipalID,
					PrincipalName: env.PrincipalName,
					Params:        env.Params,
					OccurredAt:    env.OccurredAt,
					ModelEvents:   make([]shownEvent, 0, len(evs)),
				}
				if !env.IdempotencyKey.IsZero() {
					out.IdempotencyKey = env.IdempotencyKey.String()
				}
				for _, ev := range evs {
					out.ModelEvents = append(out.ModelEvents, shownEvent{
						ID:        ev.ID,
						ModelID:   ev.ModelID,
						ModelName: ev.ModelName,
						Name:      ev.Name,
						Payload:   ev.Payload,
						Tracing:   ev.TracingContext,
					})
				}
				return g.print(out)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Look the envelope up by idempotency key")
	return cmd
}

func lookupEnvelope(ctx context.Context, a *app, args []string, key string) (*events.EnvelopeRecord, error) {
	if key != "" {
		k, err := domain.ParseIdempotencyKey(key)
		if err != nil {
			return nil, fmt.Errorf("--key: %w", err)
		}
		return a.events.FindByIdempotencyKey(ctx, a.db, k)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return nil, fmt.Errorf("envelope id: %w", err)
	}
	return a.events.Get(ctx, a.db, id)
}
