package models

import "time"

type TaskStatus string

const (
	PendingTaskStatus   TaskStatus = "pending"
	RunningTaskStatus   TaskStatus = "running"
	CompletedTaskStatus TaskStatus = "completed"
	FailedTaskStatus    TaskStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == CompletedTaskStatus || s == FailedTaskStatus
}

// Task represents one research pipeline invocation tracked by the coordinator.
type Task struct {
	ID         string          `json:"id"`                    // UUID issued at submission
	Question   string          `json:"question"`              // Originating question
	Options    ResearchOptions `json:"options"`               // Per-task pipeline knobs
	Status     TaskStatus      `json:"status"`                // pending, running, completed, failed
	Step       Step            `json:"step"`                  // Last step reported by the worker
	Percentage int             `json:"percentage"`            // 0-100, never decreases
	Result     *Result         `json:"result,omitempty"`      // Set only when completed
	Error      *TaskError      `json:"error,omitempty"`       // Set only when failed
	CreatedAt  time.Time       `json:"created_at"`            // Submission time
	UpdatedAt  time.Time       `json:"updated_at"`            // Last state change
	FinishedAt *time.Time      `json:"finished_at,omitempty"` // Terminal transition time
}

// Result is the payload of a completed task.
type Result struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
}

// TaskError is the payload of a failed task.
type TaskError struct {
	Message   string `json:"message"`
	Step      *Step  `json:"step,omitempty"` // Step that was running when the failure happened
	Retryable bool   `json:"retryable"`      // Collaborator failure was transient
}

// ResearchOptions tunes a single pipeline run. Zero values mean "use the configured default".
type ResearchOptions struct {
	MaxSources int `json:"max_sources,omitempty"`
	MaxQueries int `json:"max_queries,omitempty"`
}

// TaskSnapshot is the read-only view of a task returned to polling clients.
type TaskSnapshot struct {
	ID         string     `json:"id"`
	Status     TaskStatus `json:"status"`
	Question   string     `json:"question"`
	Step       Step       `json:"step"`
	Percentage int        `json:"percentage"`
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Error      string     `json:"error,omitempty"`
	FailedStep *Step      `json:"failed_step,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Snapshot flattens t into the polling view. Sources is never nil.
func (t Task) Snapshot() TaskSnapshot {
	snap := TaskSnapshot{
		ID:         t.ID,
		Status:     t.Status,
		Question:   t.Question,
		Step:       t.Step,
		Percentage: t.Percentage,
		Sources:    []Source{},
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.Result != nil {
		snap.Answer = t.Result.Answer
		snap.Sources = append(snap.Sources, t.Result.Sources...)
	}
	if t.Error != nil {
		snap.Error = t.Error.Message
		snap.FailedStep = t.Error.Step
	}
	return snap
}
