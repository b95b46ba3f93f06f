package schema

import "time"

// ExamMeta identifies an exam. Cohort, year, term and exam type are required for a key.
type ExamMeta struct {
	CohortID string `json:"cohortId" mapstructure:"cohort"`
	Grade    string `json:"grade" mapstructure:"grade"`
	Year     string `json:"year" mapstructure:"year"`
	Term     string `json:"term" mapstructure:"term"`
	ExamType string `json:"type" mapstructure:"exam-type"`
	ExamName string `json:"name" mapstructure:"exam-name"`
}

// UserInfo is the acting user.
type UserInfo struct {
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Class  string `json:"class,omitempty"`
	School string `json:"school,omitempty"`
}

// SyncContext is the read-only view of the caller's state for one operation.
type SyncContext struct {
	Exam          ExamMeta `json:"exam"`
	TermID        string   `json:"termId"`
	CohortID      string   `json:"cohortId"`
	User          UserInfo `json:"user"`
	DefaultSchool string   `json:"defaultSchool"`
}

// CloudRecord is one row of the shared system_data table.
type CloudRecord struct {
	Key       string    `json:"key" db:"key"`
	Content   string    `json:"content" db:"content"`
	UpdatedAt time.Time `json:"updatedAt" db:"-"`
}

// SyncResult describes a completed save or load.
type SyncResult struct {
	Status    SyncStatus `json:"status"`
	Key       string     `json:"key,omitempty"`
	Message   string     `json:"message,omitempty"`
	TriedKeys []string   `json:"triedKeys,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TeacherLoadResult is the outcome of loading assignment data.
type TeacherLoadResult struct {
	SyncResult
	Payload       AssignmentPayload `json:"payload"`
	Candidates    int               `json:"candidates"`
	MatchedByName bool              `json:"matchedByName"`
}

// MatchTarget is the identity a self-lookup searches for.
type MatchTarget struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	School string `json:"school"`
}

// MatchResult is the outcome of a self-lookup. Student is nil when nothing matched.
type MatchResult struct {
	Student    *StudentRecord  `json:"student"`
	Strategy   MatchStrategy   `json:"strategy"`
	Candidates []StudentRecord `json:"candidates"`
}

// Found reports whether a student was selected.
func (r MatchResult) Found() bool {
	return r.Student != nil
}
