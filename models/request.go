package models

// ScrapeStartRequest is the payload for POST /api/v1/scrape.
type ScrapeStartRequest struct {
	// PageURL is the search or hashtag result page to harvest from. The page
	// context (query text, sort, tag) is derived from its path and query
	// string. Required.
	PageURL string `json:"page_url" binding:"required,url"`

	// TargetCount is the number of articles to collect.
	// Default: 10. Max: 1000.
	TargetCount int `json:"target_count,omitempty" binding:"omitempty,min=1,max=1000"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeStartRequest) Defaults() {
	if r.TargetCount == 0 {
		r.TargetCount = 10
	}
}
