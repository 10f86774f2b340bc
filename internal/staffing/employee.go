package staffing

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

const employeeModel = "Employee"

type Employee struct {
	domain.EventLog

	id           EmployeeID
	name         Name
	departmentID DepartmentID
	email        string
	ration       Ration
	version      int
}

// NewEmployee hires an employee into department d with the department's
// ration unless one is given.
func NewEmployee(name Name, d *Department, email string, ration Ration) (*Employee, error) {
	if strings.TrimSpace(name.First) == "" || strings.TrimSpace(name.Last) == "" {
		return nil, fmt.Errorf("%w: incomplete name %q", ErrInvalidEmployee, name)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: no department", ErrInvalidEmployee)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if ration == "" {
		ration = d.ration
	}
	if _, err := ParseRation(string(ration)); err != nil {
		return nil, err
	}

	e := &Employee{
		id:           domain.NewID[Employee](),
		name:         name,
		departmentID: d.id,
		email:        email,
		ration:       ration,
	}
	e.Raise(EmployeeCreated{
		EmployeeID:   e.id,
		Name:         e.name,
		DepartmentID: e.departmentID,
		Email:        e.email,
		Ration:       e.ration,
	})
	return e, nil
}

func (e *Employee) ModelID() string   { return e.id.String() }
func (e *Employee) ModelName() string { return employeeModel }

func (e *Employee) ID() EmployeeID             { return e.id }
func (e *Employee) Name() Name                 { return e.name }
func (e *Employee) DepartmentID() DepartmentID { return e.departmentID }
func (e *Employee) Email() string              { return e.email }
func (e *Employee) Ration() Ration             { return e.ration }
func (e *Employee) Version() int               { return e.version }

// ChangeEmail switches the email and attributes the change to principal.
// It reports false when the email is unchanged.
func (e *Employee) ChangeEmail(principal domain.Principal, email string) (bool, error) {
	if err := validateEmail(email); err != nil {
		return false, err
	}
	if strings.EqualFold(email, e.email) {
		return false, nil
	}
	e.Raise(EmailChanged{
		EmployeeID:    e.id,
		PrincipalID:   principal.ID(),
		PrincipalName: principal.Name(),
		OldEmail:      e.email,
		NewEmail:      email,
	})
	e.email = email
	return true, nil
}
