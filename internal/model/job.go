package model

import "time"

// JobStatus is the lifecycle state of a scan job. Transitions move strictly
// forward through the pipeline stages; "failed" is reachable from any state
// and is terminal.
type JobStatus string

const (
	JobPending        JobStatus = "pending"
	JobScanning       JobStatus = "scanning"
	JobAuthenticating JobStatus = "authenticating"
	JobAnalyzing      JobStatus = "analyzing"
	JobGenerating     JobStatus = "generating"
	JobCompleted      JobStatus = "completed"
	JobFailed         JobStatus = "failed"
)

// Terminal reports whether s is a terminal status.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the durable record of one scan. It is mutated only by the
// orchestrator that owns the job; once Status is terminal the record is
// immutable apart from TTL expiry.
type Job struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"` // 0-100
	CurrentStage string     `json:"current_stage,omitempty"`
	StageMessage string     `json:"stage_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	ReportKey    string     `json:"report_key,omitempty"`
}

// JobPatch is a partial Job used by merge-upserts. Nil fields leave the
// stored value untouched.
type JobPatch struct {
	Status       *JobStatus
	Progress     *int
	CurrentStage *string
	StageMessage *string
	CompletedAt  *time.Time
	Error        *string
	ReportKey    *string
}

// Apply merges p into job in place.
func (p JobPatch) Apply(job *Job) {
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Progress != nil {
		job.Progress = *p.Progress
	}
	if p.CurrentStage != nil {
		job.CurrentStage = *p.CurrentStage
	}
	if p.StageMessage != nil {
		job.StageMessage = *p.StageMessage
	}
	if p.CompletedAt != nil {
		job.CompletedAt = p.CompletedAt
	}
	if p.Error != nil {
		job.Error = *p.Error
	}
	if p.ReportKey != nil {
		job.ReportKey = *p.ReportKey
	}
}

// Credentials are optional login credentials supplied at submission time.
// On the queue they travel encrypted; see internal/secrets.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Empty reports whether no usable credential fields are set.
func (c *Credentials) Empty() bool {
	return c == nil || (c.Username == "" && c.Password == "" && c.Email == "")
}
