package models

import "time"

// HistoryRecord is a persisted completed research task.
type HistoryRecord struct {
	ID        string    `json:"id" db:"id"`                // Task ID
	Question  string    `json:"question" db:"question"`    // Original question
	Answer    string    `json:"answer" db:"answer"`        // Final answer markdown
	Sources   Sources   `json:"sources" db:"sources"`      // Citation order preserved
	CreatedAt time.Time `json:"timestamp" db:"created_at"` // Completion time
}
