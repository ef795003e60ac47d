package models

import "time"

// CompletionRule determines how a module can be marked complete.
type CompletionRule string

const (
	CompletionManual             CompletionRule = "manual"
	CompletionSelfComplete       CompletionRule = "self_complete"
	CompletionQuizRequired       CompletionRule = "quiz_required"
	CompletionInstructorApproval CompletionRule = "instructor_approval"
)

// Course groups training modules. Archived courses are soft-deleted via the
// archived_at timestamp and excluded from provisioning.
type Course struct {
	ID                    string     `db:"id" json:"id"`
	Title                 string     `db:"title" json:"title"`
	Description           string     `db:"description" json:"description"`
	RequiredForApplicants bool       `db:"required_for_applicants" json:"required_for_applicants"`
	Published             bool       `db:"published" json:"published"`
	ArchivedAt            *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// Module is one training unit within a course.
type Module struct {
	ID              string         `db:"id" json:"id"`
	CourseID        string         `db:"course_id" json:"course_id"`
	Title           string         `db:"title" json:"title"`
	OrderIndex      int            `db:"order_index" json:"order_index"`
	ContentType     string         `db:"content_type" json:"content_type"`
	CompletionRule  CompletionRule `db:"completion_rule" json:"completion_rule"`
	SelfCompletable bool           `db:"self_completable" json:"self_completable"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// SelfServe reports whether a learner may complete the module without a grader.
func (m *Module) SelfServe() bool {
	return m.SelfCompletable || m.CompletionRule == CompletionSelfComplete
}

// CourseProgress summarises one employee's standing in a course.
type CourseProgress struct {
	CourseID          string           `json:"course_id"`
	CourseTitle       string           `json:"course_title"`
	Required          bool             `json:"required"`
	Status            EnrollmentStatus `json:"status"`
	CompletedModules  int              `json:"completed_modules"`
	TotalModules      int              `json:"total_modules"`
	ProgressPct       int              `json:"progress_pct"`
	FinalQuizPassed   bool             `json:"final_quiz_passed"`
	TermsAcknowledged bool             `json:"terms_acknowledged"`
}
