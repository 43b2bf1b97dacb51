package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/noteharvest/models"
	"github.com/use-agent/noteharvest/session"
)

// StartScrape returns the handler for POST /api/v1/scrape.
//
// The response is only the synchronous acknowledgment: accepted, or rejected
// with a reason. Completion is observed by polling the progress endpoint.
func StartScrape(runner *session.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeStartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeStartResponse{
				Accepted: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		if err := runner.Start(&req); err != nil {
			respondStartError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, models.ScrapeStartResponse{
			Accepted: true,
			Message:  "scrape started, poll /api/v1/scrape/progress",
		})
	}
}

// Progress returns the handler for GET /api/v1/scrape/progress. Reading the
// snapshot never alters the session.
func Progress(s *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ProgressResponse{
			SessionSnapshot: s.Snapshot(),
		})
	}
}

// respondStartError maps a start failure to the correct HTTP status.
func respondStartError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	status := http.StatusInternalServerError
	switch scrapeErr.Code {
	case models.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case models.ErrCodeAlreadyRunning:
		status = http.StatusConflict
	}

	c.JSON(status, models.ScrapeStartResponse{
		Accepted: false,
		Error:    scrapeErr.ToDetail(),
	})
}
