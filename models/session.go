package models

// Status is the lifecycle state of a scrape session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusScraping  Status = "scraping"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// SessionSnapshot is the read-only view of the session state returned to
// pollers. Taking a snapshot never alters state.
type SessionSnapshot struct {
	Status  Status `json:"status"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}
