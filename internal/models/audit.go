package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionEmployeeAccepted = "EMPLOYEE_ACCEPTED"
	AuditActionEmployeeUpdated  = "EMPLOYEE_UPDATED"
	AuditActionModuleCompleted  = "MODULE_COMPLETED"
	AuditActionModuleRequested  = "MODULE_MARK_REQUESTED"
	AuditActionExamSubmitted    = "EXAM_SUBMITTED"
	AuditActionExamGraded       = "EXAM_GRADED"
	AuditActionTermsAccepted    = "TERMS_ACCEPTED"
	AuditActionCollegePassed    = "PASSED"
	AuditActionDueExtended      = "DUE_EXTENDED"
	AuditActionMarkedPassed     = "MARKED_PASSED"
	AuditActionWithdrawn        = "WITHDRAWN"
	AuditActionVoyageSettled    = "VOYAGE_SETTLED"
)

// AuditFilter captures filtering criteria for the audit trail listing.
type AuditFilter struct {
	EmployeeID string
	Action     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// AuditEvent is an append-only trail record: who changed what, and when.
// Events are never mutated or deleted.
type AuditEvent struct {
	ID         string    `db:"id" json:"id"`
	EmployeeID *string   `db:"employee_id" json:"employee_id,omitempty"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Metadata   []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
