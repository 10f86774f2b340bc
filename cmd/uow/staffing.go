package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mindburn-Labs/uow/internal/staffing"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

// keyFlag parses an optional --key value.
func keyFlag(raw string) (uow.Keyed, error) {
	if raw == "" {
		return uow.Keyed{}, nil
	}
	key, err := domain.ParseIdempotencyKey(raw)
	if err != nil {
		return uow.Keyed{}, fmt.Errorf("--key: %w", err)
	}
	return uow.Keyed{Key: key}, nil
}

func newDepartmentCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "department",
		Short: "Department units of work",
	}

	var (
		name      string
		headcount int
		ration    string
		key       string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an orphaned department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyed, err := keyFlag(key)
			if err != nil {
				return err
			}
			r, err := staffing.ParseRation(ration)
			if err != nil {
				return err
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				d, err := a.staff.CreateDepartment.Execute(ctx, g.principal(), staffing.CreateDepartmentParams{
					Name:      name,
					Headcount: headcount,
					Ration:    r,
					Keyed:     keyed,
				})
				if err != nil {
					return err
				}
				return g.print(map[string]any{
					"departmentId": d.ID().String(),
					"name":         d.Name(),
					"headcount":    d.Headcount(),
					"ration":       d.Ration(),
				})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Department name")
	create.Flags().IntVar(&headcount, "headcount", 0, "Initial headcount")
	create.Flags().StringVar(&ration, "ration", string(staffing.Borscht), "Ration: SHAKSHOUKA, BORSCHT or PLOV")
	create.Flags().StringVar(&key, "key", "", "Idempotency key")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func newEmployeeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Employee units of work",
	}
	cmd.AddCommand(newHireCmd(g), newChangeEmailCmd(g))
	return cmd
}

func newHireCmd(g *globals) *cobra.Command {
	var (
		department string
		first      string
		last       string
		email      string
		ration     string
		key        string
	)
	hire := &cobra.Command{
		Use:   "hire",
		Short: "Hire an employee into a department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyed, err := keyFlag(key)
			if err != nil {
				return err
			}
			depID, err := domain.ParseID[staffing.Department](department)
			if err != nil {
				return fmt.Errorf("--department: %w", err)
			}
			var r staffing.Ration
			if ration != "" {
				if r, err = staffing.ParseRation(ration); err != nil {
					return err
				}
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				e, err := a.staff.HireEmployee.Execute(ctx, g.principal(), staffing.HireEmployeeParams{
					DepartmentID: depID,
					Name:         staffing.Name{First: first, Last: last},
					Email:        email,
					Ration:       r,
					Keyed:        keyed,
				})
				if err != nil {
					return err
				}
				return g.print(map[string]any{
					"employeeId":   e.ID().String(),
					"departmentId": e.DepartmentID().String(),
					"email":        e.Email(),
					"ration":       e.Ration(),
				})
			})
		},
	}
	hire.Flags().StringVar(&department, "department", "", "Department id")
	hire.Flags().StringVar(&first, "first", "", "First name")
	hire.Flags().StringVar(&last, "last", "", "Last name")
	hire.Flags().StringVar(&email, "email", "", "Email address")
	hire.Flags().StringVar(&ration, "ration", "", "Ration, defaults to the department's")
	hire.Flags().StringVar(&key, "key", "", "Idempotency key")
	for _, f := range []string{"department", "first", "last", "email"} {
		_ = hire.MarkFlagRequired(f)
	}
	return hire
}

func newChangeEmailCmd(g *globals) *cobra.Command {
	var employee, email, key string
	change := &cobra.Command{
		Use:   "change-email",
		Short: "Change an employee's email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyed, err := keyFlag(key)
			if err != nil {
				return err
			}
			empID, err := domain.ParseID[staffing.Employee](employee)
			if err != nil {
				return fmt.Errorf("--employee: %w", err)
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				e, err := a.staff.ChangeEmail.Execute(ctx, g.principal(), staffing.ChangeEmailParams{
					EmployeeID: empID,
					Email:      email,
					Keyed:      keyed,
				})
				if err != nil {
					return err
				}
				return g.print(map[string]any{
					"employeeId": e.ID().String(),
					"email":      e.Email(),
				})
			})
		},
	}
	change.Flags().StringVar(&employee, "employee", "", "Employee id")
	change.Flags().StringVar(&email, "email", "", "New email address")
	change.Flags().StringVar(&key, "key", "", "Idempotency key")
	_ = change.MarkFlagRequired("employee")
	_ = change.MarkFlagRequired("email")
	return change
}
