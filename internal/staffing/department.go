package staffing

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

const departmentModel = "Department"

// Department groups employees. An orphaned department has no boss yet.
type Department struct {
	domain.EventLog

	id        DepartmentID
	name      string
	headcount int
	ration    Ration
	version   int
}

// NewOrphanedDepartment creates a department without a boss on behalf of
// principal.
func NewOrphanedDepartment(principal domain.Principal, name string, headcount int, ration Ration) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidDepartment)
	}
	if headcount < 0 {
		return nil, fmt.Errorf("%w: negative headcount %d", ErrInvalidDepartment, headcount)
	}
	if _, err := ParseRation(string(ration)); err != nil {
		return nil, err
	}

	d := &Department{
		id:        domain.NewID[Department](),
		name:      name,
		headcount: headcount,
		ration:    ration,
	}
	d.Raise(OrphanedDepartmentCreated{
		DepartmentID:  d.id,
		PrincipalID:   principal.ID(),
		PrincipalName: principal.Name(),
		Name:          d.name,
		Headcount:     d.headcount,
		Ration:        d.ration,
	})
	return d, nil
}

func (d *Department) ModelID() string   { return d.id.String() }
func (d *Department) ModelName() string { return departmentModel }

func (d *Department) ID() DepartmentID { return d.id }
func (d *Department) Name() string     { return d.name }
func (d *Department) Headcount() int   { return d.headcount }
func (d *Department) Ration() Ration   { return d.ration }
func (d *Department) Version() int     { return d.version }

// Hire counts one more employee. It raises no event: the EmployeeCreated
// event of the hire carries the department id.
func (d *Department) Hire() {
	d.headcount++
}
