package staffing

// OrphanedDepartmentCreated is raised when a department is created without a
// boss.
type OrphanedDepartmentCreated struct {
	DepartmentID  DepartmentID `json:"-"`
	PrincipalID   string       `json:"principalId"`
	PrincipalName string       `json:"principalName"`
	Name          string       `json:"name"`
	Headcount     int          `json:"headcount"`
	Ration        Ration       `json:"ration"`
}

func (e OrphanedDepartmentCreated) ModelID() string   { return e.DepartmentID.String() }
func (e OrphanedDepartmentCreated) ModelName() string { return departmentModel }
func (e OrphanedDepartmentCreated) EventName() string { return "OrphanedDepartmentCreated" }

type EmployeeCreated struct {
	EmployeeID   EmployeeID   `json:"employeeId"`
	Name         Name         `json:"name"`
	DepartmentID DepartmentID `json:"departmentId"`
	Email        string       `json:"email"`
	Ration       Ration       `json:"ration"`
}

func (e EmployeeCreated) ModelID() string   { return e.EmployeeID.String() }
func (e EmployeeCreated) ModelName() string { return employeeModel }
func (e EmployeeCreated) EventName() string { return "EmployeeCreated" }

// EmailChanged carries the principal that changed the email.
type EmailChanged struct {
	EmployeeID    EmployeeID `json:"-"`
	PrincipalID   string     `json:"principalId"`
	PrincipalName string     `json:"principalName"`
	OldEmail      string     `json:"oldEmail"`
	NewEmail      string     `json:"newEmail"`
}

func (e EmailChanged) ModelID() string   { return e.EmployeeID.String() }
func (e EmailChanged) ModelName() string { return employeeModel }
func (e EmailChanged) EventName() string { return "EmailChanged" }
