package models

import "time"

// EnrollmentStatus is the lifecycle state of one employee-course enrollment.
type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
	EnrollmentPassed     EnrollmentStatus = "passed"
	EnrollmentWithdrawn  EnrollmentStatus = "withdrawn"
	EnrollmentRemoved    EnrollmentStatus = "removed"
)

// enrollmentTransitions lists the allowed successor states for automated
// transitions. Terminal states have no successors: once passed, nothing the
// progression engine does may move the enrollment backward. Administrative
// withdrawal bypasses this table for non-terminal states only.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentInProgress: {EnrollmentCompleted, EnrollmentPassed, EnrollmentWithdrawn, EnrollmentRemoved},
	EnrollmentCompleted:  {EnrollmentPassed, EnrollmentWithdrawn, EnrollmentRemoved},
	EnrollmentPassed:     {},
	EnrollmentWithdrawn:  {},
	EnrollmentRemoved:    {},
}

// CanTransition reports whether an automated transition from one status to
// another is permitted.
func (s EnrollmentStatus) CanTransition(to EnrollmentStatus) bool {
	for _, next := range enrollmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no automated successors.
func (s EnrollmentStatus) Terminal() bool {
	return len(enrollmentTransitions[s]) == 0
}

// Enrollment records one (employee, course) assignment. The pair is unique.
type Enrollment struct {
	ID                string           `db:"id" json:"id"`
	EmployeeID        string           `db:"employee_id" json:"employee_id"`
	CourseID          string           `db:"course_id" json:"course_id"`
	Required          bool             `db:"required" json:"required"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	FinalQuizPassed   bool             `db:"final_quiz_passed" json:"final_quiz_passed"`
	TermsAcknowledged bool             `db:"terms_acknowledged" json:"terms_acknowledged"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	PassedAt          *time.Time       `db:"passed_at" json:"passed_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// ModuleProgressStatus is the completion state of one module for one employee.
type ModuleProgressStatus string

const (
	ProgressAvailable       ModuleProgressStatus = "available"
	ProgressAwaitingMarking ModuleProgressStatus = "awaiting_marking"
	ProgressComplete        ModuleProgressStatus = "complete"
)

// ModuleProgress records one (employee, module) completion state. The pair is
// the upsert key; completed_at is non-nil iff status is complete.
type ModuleProgress struct {
	ID          string               `db:"id" json:"id"`
	EmployeeID  string               `db:"employee_id" json:"employee_id"`
	ModuleID    string               `db:"module_id" json:"module_id"`
	Status      ModuleProgressStatus `db:"status" json:"status"`
	GraderID    *string              `db:"grader_id" json:"grader_id,omitempty"`
	Reason      string               `db:"reason" json:"reason"`
	RequestedAt *time.Time           `db:"requested_at" json:"requested_at,omitempty"`
	CompletedAt *time.Time           `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}

// EnrollmentTransition describes an enrollment status change applied inside
// the same transaction as a module-progress write.
type EnrollmentTransition struct {
	EnrollmentID string
	From         EnrollmentStatus
	To           EnrollmentStatus
	CompletedAt  *time.Time
	PassedAt     *time.Time
}

// PassSummary is the aggregate used by pass evaluation over the employee's
// required enrollments.
type PassSummary struct {
	RequiredCount      int  `json:"required_count"`
	InductionCompleted bool `json:"induction_completed"`
	FinalQuizPassed    bool `json:"final_quiz_passed"`
	TermsAcknowledged  bool `json:"terms_acknowledged"`
	Passed             bool `json:"passed"`
	AlreadyPassed      bool `json:"already_passed"`
}

// ProgressPct computes the floor percentage of completed modules, guarding
// the zero-module case.
func ProgressPct(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return 100 * completed / total
}
