package models

// ScrapeStartResponse is the synchronous acknowledgment for POST /api/v1/scrape.
// Completion is observed only by polling the progress endpoint.
type ScrapeStartResponse struct {
	Accepted bool         `json:"accepted"`
	Message  string       `json:"message,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// ProgressResponse is the body of GET /api/v1/scrape/progress.
type ProgressResponse struct {
	SessionSnapshot
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	SessionStatus Status `json:"session_status"`
}
