package models

import "time"

// QuestionType distinguishes multiple-choice from short free-text questions.
type QuestionType string

const (
	QuestionMCQ   QuestionType = "mcq"
	QuestionShort QuestionType = "short"
)

// Exam belongs to a course and optionally gates a specific module.
type Exam struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	ModuleID     *string   `db:"module_id" json:"module_id,omitempty"`
	Title        string    `db:"title" json:"title"`
	PassingScore int       `db:"passing_score" json:"passing_score"`
	AttemptLimit int       `db:"attempt_limit" json:"attempt_limit"`
	TimeLimitMin *int      `db:"time_limit_min" json:"time_limit_min,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ExamQuestion is one gradable item. A nil/empty expected answer means the
// question requires manual grading.
type ExamQuestion struct {
	ID             string       `db:"id" json:"id"`
	ExamID         string       `db:"exam_id" json:"exam_id"`
	Type           QuestionType `db:"type" json:"type"`
	Prompt         string       `db:"prompt" json:"prompt"`
	Choices        []byte       `db:"choices" json:"choices,omitempty"`
	ExpectedAnswer *string      `db:"expected_answer" json:"-"`
	Points         int          `db:"points" json:"points"`
	OrderIndex     int          `db:"order_index" json:"order_index"`
}

// ExamAttempt records one submission. A nil score means grading is pending.
type ExamAttempt struct {
	ID          string     `db:"id" json:"id"`
	ExamID      string     `db:"exam_id" json:"exam_id"`
	EmployeeID  string     `db:"employee_id" json:"employee_id"`
	Answers     []byte     `db:"answers" json:"answers"`
	Score       *int       `db:"score" json:"score,omitempty"`
	Passed      bool       `db:"passed" json:"passed"`
	GraderID    *string    `db:"grader_id" json:"grader_id,omitempty"`
	Notes       string     `db:"notes" json:"notes"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
	GradedAt    *time.Time `db:"graded_at" json:"graded_at,omitempty"`
}

// ExamPassEffects captures the side effects applied atomically with a passing
// attempt: the enrollment's final-quiz flag, an optional module completion,
// and an optional enrollment status transition.
type ExamPassEffects struct {
	EmployeeID string
	CourseID   string
	Module     *ModuleProgress
	Transition *EnrollmentTransition
	Audit      *AuditEvent
}
