package models

import "time"

// UserStatus represents an employee's standing within the company.
type UserStatus string

const (
	StatusActiveStaff       UserStatus = "ACTIVE_STAFF"
	StatusApplicantAccepted UserStatus = "APPLICANT_ACCEPTED"
	StatusInstructor        UserStatus = "INSTRUCTOR"
	StatusCollegeAdmin      UserStatus = "COLLEGE_ADMIN"
	StatusTraineeWithdrawn  UserStatus = "TRAINEE_WITHDRAWN"
)

// Employee represents a crew member stored in the employees table.
// Employees are never hard-deleted.
type Employee struct {
	ID              string     `db:"id" json:"id"`
	IdentityID      string     `db:"identity_id" json:"identity_id"`
	Username        string     `db:"username" json:"username"`
	Serial          string     `db:"serial" json:"serial"`
	Rank            string     `db:"rank" json:"rank"`
	Grade           string     `db:"grade" json:"grade"`
	UserStatus      UserStatus `db:"user_status" json:"user_status"`
	CollegeStartAt  *time.Time `db:"college_start_at" json:"college_start_at,omitempty"`
	CollegeDueAt    *time.Time `db:"college_due_at" json:"college_due_at,omitempty"`
	CollegePassedAt *time.Time `db:"college_passed_at" json:"college_passed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Restricted reports whether the employee is confined to the college surface:
// an accepted applicant who has not yet passed training.
func (e *Employee) Restricted() bool {
	if e == nil {
		return false
	}
	return e.UserStatus == StatusApplicantAccepted && e.CollegePassedAt == nil
}

// AcceptEmployeeRequest is the payload for onboarding an accepted applicant.
type AcceptEmployeeRequest struct {
	IdentityID string `json:"identity_id" validate:"required"`
	Username   string `json:"username" validate:"required,min=2,max=64"`
	Serial     string `json:"serial" validate:"required"`
	Rank       string `json:"rank"`
	Grade      string `json:"grade"`
	DueDays    int    `json:"due_days" validate:"omitempty,min=1,max=365"`
}

// UpdateEmployeeRequest mutates display attributes of an employee.
type UpdateEmployeeRequest struct {
	Username *string     `json:"username,omitempty" validate:"omitempty,min=2,max=64"`
	Serial   *string     `json:"serial,omitempty"`
	Rank     *string     `json:"rank,omitempty"`
	Grade    *string     `json:"grade,omitempty"`
	Status   *UserStatus `json:"user_status,omitempty"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	Status    *UserStatus
	Rank      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
