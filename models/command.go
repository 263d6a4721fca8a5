package models

import "time"

type CommandType string

const (
	CmdPause       CommandType = "pause"
	CmdResume      CommandType = "resume"
	CmdHealthcheck CommandType = "healthcheck"
	CmdReapNow     CommandType = "reap_now"
)

// Command is an operator instruction queued through the operational store
// and picked up by the scheduler's polling loop.
type Command struct {
	ID          int64       `json:"id" db:"id"`
	Command     CommandType `json:"command" db:"command"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time  `json:"processed_at" db:"processed_at"`
}
