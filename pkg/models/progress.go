package models

import (
	"encoding/json"
	"time"
)

type EventStatus string

const (
	RunningEventStatus   EventStatus = "running"
	CompletedEventStatus EventStatus = "completed"
	ErrorEventStatus     EventStatus = "error"
	HeartbeatEventStatus EventStatus = "heartbeat"
)

// ProgressEvent is one unit of streamed task status.
type ProgressEvent struct {
	TaskID     string      `json:"task_id"`
	Seq        uint64      `json:"seq"` // 1-based position in the task log; 0 for heartbeats
	Step       Step        `json:"step"`
	Message    string      `json:"message"`
	Percentage int         `json:"percentage"`
	Status     EventStatus `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Terminal reports whether the event ends a stream.
func (e ProgressEvent) Terminal() bool {
	return e.Status == CompletedEventStatus || e.Status == ErrorEventStatus
}

// Marshal returns the JSON payload used by the SSE and WebSocket transports.
func (e ProgressEvent) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ProgressFunc receives step/percentage updates from a running pipeline.
type ProgressFunc func(step Step, percentage int, message string)
