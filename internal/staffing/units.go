package staffing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/txn"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

type CreateDepartmentParams struct {
	Name      string `json:"name"`
	Headcount int    `json:"headcount"`
	Ration    Ration `json:"ration"`
	uow.Keyed
}

func (p CreateDepartmentParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDepartment)
	}
	_, err := ParseRation(string(p.Ration))
	return err
}

// CreateDepartment opens an orphaned department.
func CreateDepartment() uow.UnitOfWork[domain.Principal, CreateDepartmentParams, *Department] {
	return uow.Define("CreateDepartment",
		func(_ context.Context, s *uow.Scope, principal domain.Principal, p CreateDepartmentParams) (*Department, error) {
			d, err := NewOrphanedDepartment(principal, p.Name, p.Headcount, p.Ration)
			if err != nil {
				return nil, err
			}
			return uow.Add(s, d), nil
		})
}

type HireEmployeeParams struct {
	DepartmentID DepartmentID `json:"departmentId"`
	Name         Name         `json:"name"`
	Email        string       `json:"email"`
	Ration       Ration       `json:"ration,omitempty"`
	uow.Keyed
}

func (p HireEmployeeParams) Validate() error {
	if p.DepartmentID.UUID == uuid.Nil {
		return fmt.Errorf("%w: department is required", ErrInvalidEmployee)
	}
	return validateEmail(p.Email)
}

// HireEmployee adds an employee and bumps the department headcount.
type HireEmployee struct {
	reader      txn.Executor
	departments *DepartmentRepository
}

func NewHireEmployee(reader txn.Executor, departments *DepartmentRepository) *HireEmployee {
	return &HireEmployee{reader: reader, departments: departments}
}

func (u *HireEmployee) Name() string { return "HireEmployee" }

func (u *HireEmployee) Changes(ctx context.Context, _ domain.Principal, p HireEmployeeParams) (*uow.Changes[*Employee], error) {
	dep, err := u.departments.Get(ctx, readerFor(ctx, u.reader), p.DepartmentID)
	if err != nil {
		return nil, err
	}
	return uow.Record(ctx, func(_ context.Context, s *uow.Scope) (*Employee, error) {
		emp, err := NewEmployee(p.Name, dep, p.Email, p.Ration)
		if err != nil {
			return nil, err
		}
		dep.Hire()
		uow.Add(s, emp)
		uow.Update(s, dep)
		return emp, nil
	})
}

type ChangeEmailParams struct {
	EmployeeID EmployeeID `json:"employeeId"`
	Email      string     `json:"email"`
	uow.Keyed
}

func (p ChangeEmailParams) Validate() error { return validateEmail(p.Email) }

// ChangeEmail switches an employee's email. An unchanged email records no
// change.
type ChangeEmail struct {
	reader    txn.Executor
	employees *EmployeeRepository
}

func NewChangeEmail(reader txn.Executor, employees *EmployeeRepository) *ChangeEmail {
	return &ChangeEmail{reader: reader, employees: employees}
}

func (u *ChangeEmail) Name() string { return "ChangeEmail" }

func (u *ChangeEmail) Changes(ctx context.Context, principal domain.Principal, p ChangeEmailParams) (*uow.Changes[*Employee], error) {
	emp, err := u.employees.Get(ctx, readerFor(ctx, u.reader), p.EmployeeID)
	if err != nil {
		return nil, err
	}
	return uow.Record(ctx, func(_ context.Context, s *uow.Scope) (*Employee, error) {
		changed, err := emp.ChangeEmail(principal, p.Email)
		if err != nil {
			return nil, err
		}
		if !changed {
			s.Noop()
			return emp, nil
		}
		return uow.Update(s, emp), nil
	})
}

// readerFor reads through the caller's open transaction when ctx carries
// one, so a joined unit of work sees rows the caller has not committed.
func readerFor(ctx context.Context, pool txn.Executor) txn.Executor {
	if tc, ok := txn.FromContext(ctx); ok {
		return tc.Tx()
	}
	return pool
}
