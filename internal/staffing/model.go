// Package staffing is a small department/employee domain run through the
// unit-of-work engine. The CLI and the end-to-end tests use it.
package staffing

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Mindburn-Labs/uow/pkg/domain"
)

var (
	ErrInvalidDepartment = errors.New("staffing: invalid department")
	ErrInvalidEmployee   = errors.New("staffing: invalid employee")
	ErrInvalidEmail      = errors.New("staffing: invalid email")
	ErrUnknownRation     = errors.New("staffing: unknown ration")
	ErrEmailTaken        = errors.New("staffing: email already taken")
)

// Ration is the meal plan of a department or an employee.
type Ration string

const (
	Shakshouka Ration = "SHAKSHOUKA"
	Borscht    Ration = "BORSCHT"
	Plov       Ration = "PLOV"
)

func ParseRation(s string) (Ration, error) {
	switch r := Ration(strings.ToUpper(strings.TrimSpace(s))); r {
	case Shakshouka, Borscht, Plov:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRation, s)
	}
}

// Name is an employee's full name.
type Name struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

func (n Name) String() string { return strings.TrimSpace(n.First + " " + n.Last) }

type (
	DepartmentID = domain.ID[Department]
	EmployeeID   = domain.ID[Employee]
)

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}
