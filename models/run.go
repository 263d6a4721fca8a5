package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Outcome classifies how a resolution attempt ended; stored in the
// operational log for postmortems.
type Outcome string

const (
	OutcomeLocalHit     Outcome = "local_hit"
	OutcomeScraped      Outcome = "scraped"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeGeoMismatch  Outcome = "geo_mismatch"
	OutcomeCommitted    Outcome = "committed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeExpired      Outcome = "expired"
	OutcomeSessionError Outcome = "session_error"
	OutcomeStoreError   Outcome = "store_error"
)

// ResolutionRun is one resolution attempt as recorded in the operational
// SQLite store: who asked, what they asked for, and how it ended.
type ResolutionRun struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	CityID     int        `json:"city_id" db:"city_id"`
	Query      string     `json:"query" db:"query"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	Outcome    Outcome    `json:"outcome" db:"outcome"`
	HouseID    *int       `json:"house_id" db:"house_id"`
	Detail     string     `json:"detail" db:"detail"`
}
