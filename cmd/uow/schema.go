package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mindburn-Labs/uow/internal/staffing"
	"github.com/Mindburn-Labs/uow/pkg/database"
)

func newSchemaCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the outbox and staffing tables if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if err := database.EnsureSchema(ctx, a.db, a.dialect, staffing.Schema...); err != nil {
					return err
				}
				_, err := fmt.Fprintf(g.stdout, "schema ready (%s)\n", a.dialect.Name())
				return err
			})
		},
	}
}
