// Package audit implements the best-effort edit log. Events describe who
// created, revised, or cleared registrations. The log is observational only:
// it is never read back to make decisions, and a failed write must never
// block or fail the registration write it describes.
package audit

import "time"

// Action classifies an edit-log entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionClear  Action = "clear"
)

// Event is one edit-log entry.
type Event struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	Action    Action    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
