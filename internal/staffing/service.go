package staffing

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/uow/pkg/config"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/uow"
)

var ErrNoRepositories = errors.New("staffing: repositories are not registered")

// Service exposes the staffing units of work bound to one engine.
type Service struct {
	CreateDepartment *uow.Runner[domain.Principal, CreateDepartmentParams, *Department]
	HireEmployee     *uow.Runner[domain.Principal, HireEmployeeParams, *Employee]
	ChangeEmail      *uow.Runner[domain.Principal, ChangeEmailParams, *Employee]

	Departments *DepartmentRepository
	Employees   *EmployeeRepository
}

// NewService binds the staffing units of work to the repositories returned
// by RegisterRepositories. Reads outside a caller's transaction go through
// db. Per-unit options come from units, which may be nil.
func NewService(db *sql.DB, repos *Repositories, engine *uow.Engine, units *config.UnitsFile) (*Service, error) {
	if repos == nil || repos.Departments == nil || repos.Employees == nil {
		return nil, ErrNoRepositories
	}
	deps, emps := repos.Departments, repos.Employees

	create := CreateDepartment()
	hire := NewHireEmployee(db, deps)
	change := NewChangeEmail(db, emps)

	createOpts, err := uow.OptionsFromConfig(create.Name(), units.For(create.Name()))
	if err != nil {
		return nil, fmt.Errorf("staffing: %w", err)
	}
	hireOpts, err := uow.OptionsFromConfig(hire.Name(), units.For(hire.Name()))
	if err != nil {
		return nil, fmt.Errorf("staffing: %w", err)
	}
	changeOpts, err := uow.OptionsFromConfig(change.Name(), units.For(change.Name()))
	if err != nil {
		return nil, fmt.Errorf("staffing: %w", err)
	}

	return &Service{
		CreateDepartment: uow.Bind(engine, create, createOpts),
		HireEmployee:     uow.Bind[domain.Principal, HireEmployeeParams, *Employee](engine, hire, hireOpts),
		ChangeEmail:      uow.Bind[domain.Principal, ChangeEmailParams, *Employee](engine, change, changeOpts),
		Departments:      deps,
		Employees:        emps,
	}, nil
}
