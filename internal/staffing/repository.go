package staffing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/uow/pkg/database"
	"github.com/Mindburn-Labs/uow/pkg/domain"
	"github.com/Mindburn-Labs/uow/pkg/persistence"
	"github.com/Mindburn-Labs/uow/pkg/txn"
)

// DepartmentRepository stores departments with optimistic versioning.
type DepartmentRepository struct {
	dialect database.Dialect
}

func NewDepartmentRepository(dialect database.Dialect) *DepartmentRepository {
	return &DepartmentRepository{dialect: dialect}
}

func (r *DepartmentRepository) ph(n int) string { return r.dialect.Placeholder(n) }

func (r *DepartmentRepository) Add(ctx context.Context, tc *txn.Context, d *Department) error {
	query := fmt.Sprintf(
		"INSERT INTO departments (id, name, headcount, ration, version, updated_at) VALUES (%s, %s, %s, %s, %s, %s)",
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6))
	if _, err := tc.Tx().ExecContext(ctx, query, d.id.String(), d.name, d.headcount, string(d.ration), 1, tc.Now()); err != nil {
		return fmt.Errorf("insert department %s: %w", d.id, err)
	}
	d.version = 1
	return nil
}

func (r *DepartmentRepository) Update(ctx context.Context, tc *txn.Context, d *Department) error {
	query := fmt.Sprintf(
		"UPDATE departments SET name = %s, headcount = %s, ration = %s, version = %s, updated_at = %s WHERE id = %s AND version = %s",
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7))
	res, err := tc.Tx().ExecContext(ctx, query, d.name, d.headcount, string(d.ration), d.version+1, tc.Now(), d.id.String(), d.version)
	if err != nil {
		return fmt.Errorf("update department %s: %w", d.id, err)
	}
	if err := expectOneRow(res, "department", d.id.String(), d.version); err != nil {
		return err
	}
	d.version++
	return nil
}

// Get loads a department. It reads through q, which may be the pool or an
// open transaction.
func (r *DepartmentRepository) Get(ctx context.Context, q txn.Executor, id DepartmentID) (*Department, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, headcount, ration, version FROM departments WHERE id = "+r.ph(1), id.String())

	var (
		d      Department
		rawID  string
		ration string
	)
	if err := row.Scan(&rawID, &d.name, &d.headcount, &ration, &d.version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("department %s: %w", id, persistence.ErrNotFound)
		}
		return nil, fmt.Errorf("get department %s: %w", id, err)
	}
	parsed, err := domain.ParseID[Department](rawID)
	if err != nil {
		return nil, fmt.Errorf("get department %s: %w", id, err)
	}
	d.id = parsed
	d.ration = Ration(ration)
	return &d, nil
}

// EmployeeRepository stores employees with optimistic versioning.
type EmployeeRepository struct {
	dialect database.Dialect
}

func NewEmployeeRepository(dialect database.Dialect) *EmployeeRepository {
	return &EmployeeRepository{dialect: dialect}
}

func (r *EmployeeRepository) ph(n int) string { return r.dialect.Placeholder(n) }

func (r *EmployeeRepository) Add(ctx context.Context, tc *txn.Context, e *Employee) error {
	query := fmt.Sprintf(
		"INSERT INTO employees (id, first_name, last_name, department_id, email, ration, version, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8))
	_, err := tc.Tx().ExecContext(ctx, query,
		e.id.String(), e.name.First, e.name.Last, e.departmentID.String(), e.email, string(e.ration), 1, tc.Now())
	if err != nil {
		if isEmailTaken(err) {
			return emailTaken(e.email, err)
		}
		return fmt.Errorf("insert employee %s: %w", e.id, err)
	}
	e.version = 1
	return nil
}

func (r *EmployeeRepository) Update(ctx context.Context, tc *txn.Context, e *Employee) error {
	query := fmt.Sprintf(
		"UPDATE employees SET first_name = %s, last_name = %s, department_id = %s, email = %s, ration = %s, version = %s, updated_at = %s WHERE id = %s AND version = %s",
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8), r.ph(9))
	res, err := tc.Tx().ExecContext(ctx, query,
		e.name.First, e.name.Last, e.departmentID.String(), e.email, string(e.ration), e.version+1, tc.Now(), e.id.String(), e.version)
	if err != nil {
		if isEmailTaken(err) {
			return emailTaken(e.email, err)
		}
		return fmt.Errorf("update employee %s: %w", e.id, err)
	}
	if err := expectOneRow(res, "employee", e.id.String(), e.version); err != nil {
		return err
	}
	e.version++
	return nil
}

func (r *EmployeeRepository) Get(ctx context.Context, q txn.Executor, id EmployeeID) (*Employee, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, department_id, email, ration, version FROM employees WHERE id = "+r.ph(1), id.String())

	var (
		e             Employee
		rawID, rawDep string
		ration        string
	)
	if err := row.Scan(&rawID, &e.name.First, &e.name.Last, &rawDep, &e.email, &ration, &e.version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee %s: %w", id, persistence.ErrNotFound)
		}
		return nil, fmt.Errorf("get employee %s: %w", id, err)
	}
	var err error
	if e.id, err = domain.ParseID[Employee](rawID); err != nil {
		return nil, fmt.Errorf("get employee %s: %w", id, err)
	}
	if e.departmentID, err = domain.ParseID[Department](rawDep); err != nil {
		return nil, fmt.Errorf("get employee %s: %w", id, err)
	}
	e.ration = Ration(ration)
	return &e, nil
}

// emailConstraints are the names the email uniqueness rule is reported
// under: Postgres reports the constraint, SQLite the column.
var emailConstraints = map[string]bool{
	"employees_email_key": true,
	"employees.email":     true,
}

func isEmailTaken(err error) bool {
	return database.IsUniqueViolation(err) && emailConstraints[database.ConstraintName(err)]
}

func emailTaken(email string, err error) error {
	return fmt.Errorf("%w %s (%w): %w", ErrEmailTaken, email, persistence.ErrConstraint, err)
}

func expectOneRow(res sql.Result, kind, id string, version int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	if n != 1 {
		return fmt.Errorf("%s %s at version %d: %w", kind, id, version, persistence.ErrStaleRecord)
	}
	return nil
}

// Repositories are the staffing repositories bound into one registry.
type Repositories struct {
	Departments *DepartmentRepository
	Employees   *EmployeeRepository
}

// RegisterRepositories binds the staffing repositories into reg.
func RegisterRepositories(reg *persistence.Registry, dialect database.Dialect) *Repositories {
	repos := &Repositories{
		Departments: NewDepartmentRepository(dialect),
		Employees:   NewEmployeeRepository(dialect),
	}
	persistence.Register[*Department](reg, repos.Departments)
	persistence.Register[*Employee](reg, repos.Employees)
	return repos
}

// Models lists one value of every staffing model, for Registry.Seal.
func Models() []domain.Model {
	return []domain.Model{&Department{}, &Employee{}}
}
