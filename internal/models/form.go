package models

import "time"

// Form defines an intranet form. The schema is an opaque JSON document
// consumed by the presentation layer.
type Form struct {
	ID         string     `db:"id" json:"id"`
	Title      string     `db:"title" json:"title"`
	Schema     []byte     `db:"schema" json:"schema"`
	Active     bool       `db:"active" json:"active"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// FormSubmission stores one employee's answers to a form.
type FormSubmission struct {
	ID          string    `db:"id" json:"id"`
	FormID      string    `db:"form_id" json:"form_id"`
	EmployeeID  string    `db:"employee_id" json:"employee_id"`
	Payload     []byte    `db:"payload" json:"payload"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}
