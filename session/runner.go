package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/noteharvest/browser"
	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/enrich"
	"github.com/use-agent/noteharvest/export"
	"github.com/use-agent/noteharvest/harvest"
	"github.com/use-agent/noteharvest/models"
)

// Runner composes the harvesters, the enricher and the exporter into one
// run over the Session. There is no cancellation primitive: once started, a
// run proceeds to completed or error.
type Runner struct {
	session    *Session
	browser    *browser.Browser
	client     *harvest.Client
	searcher   *harvest.Searcher
	hashtagger *harvest.Hashtagger
	enricher   *enrich.Fetcher
	saver      export.Saver
	scrollCfg  config.ScrollConfig
}

// NewRunner wires the pipeline. b may be nil, in which case the DOM fallback
// is unavailable and API harvest failures end the run.
func NewRunner(
	s *Session,
	b *browser.Browser,
	client *harvest.Client,
	searcher *harvest.Searcher,
	hashtagger *harvest.Hashtagger,
	enricher *enrich.Fetcher,
	saver export.Saver,
	scrollCfg config.ScrollConfig,
) *Runner {
	return &Runner{
		session:    s,
		browser:    b,
		client:     client,
		searcher:   searcher,
		hashtagger: hashtagger,
		enricher:   enricher,
		saver:      saver,
		scrollCfg:  scrollCfg,
	}
}

// Session exposes the shared state for the polling read path.
func (r *Runner) Session() *Session {
	return r.session
}

// Start validates the request, claims the session and launches the run in
// the background. Validation failures and duplicate starts are surfaced
// synchronously, before any work begins.
func (r *Runner) Start(req *models.ScrapeStartRequest) error {
	page, err := harvest.ParsePage(req.PageURL)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	if req.TargetCount <= 0 {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "target_count must be positive", nil)
	}

	run, err := r.session.Start(req.TargetCount)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeAlreadyRunning, "a scrape is already running", err)
	}

	go r.run(run, page, req.TargetCount)
	return nil
}

// run is the whole pipeline: harvest → enrich → export. Every sub-step
// absorbs its own failures; anything that still escapes lands in the
// deferred recover and turns into the error state.
func (r *Runner) run(run *Run, page harvest.PageContext, target int) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("run panicked", "panic", rec)
			run.Fail(fmt.Sprintf("unexpected failure: %v", rec))
		}
	}()

	ctx := context.Background()

	// Open the result page up front: the DOM fallback needs it rendered, and
	// its cookies authenticate the API requests like the page itself.
	var livePage *browser.Page
	if r.browser != nil {
		p, err := r.browser.OpenPage(ctx, page.Base.String())
		if err != nil {
			slog.Warn("opening result page failed, continuing API-only", "error", err)
		} else {
			livePage = p
			defer livePage.Close()
			if cookie, err := livePage.CookieHeader(); err == nil && cookie != "" {
				r.client.SetAmbientHeaders(map[string]string{"Cookie": cookie})
			}
		}
	}

	report := func(collected int) {
		run.SetProgress(collected, fmt.Sprintf("collecting articles (%d/%d)", collected, target))
	}

	articles, err := r.harvestArticles(ctx, page, target, report, livePage)
	if err != nil {
		run.Fail(err.Error())
		return
	}
	run.SetArticles(articles)

	total := len(articles)
	enriched := r.enricher.EnrichAll(ctx, articles, func(done int) {
		run.SetProgress(done, fmt.Sprintf("resolving ratings (%d/%d)", done, total))
	})

	location, err := r.saver.Save(export.Filename(time.Now()), export.Encode(enriched))
	if err != nil {
		run.Fail(models.NewScrapeError(models.ErrCodeExport, "saving export failed", err).Error())
		return
	}

	slog.Info("run completed", "articles", len(enriched), "file", location)
	run.Complete(enriched, fmt.Sprintf("completed: %d articles exported to %s", len(enriched), location))
}

// harvestArticles runs the API harvester for the page context and falls back
// to scroll collection over the live page when it fails.
func (r *Runner) harvestArticles(ctx context.Context, page harvest.PageContext, target int, report harvest.ProgressFunc, livePage *browser.Page) ([]models.Article, error) {
	var articles []models.Article
	var err error

	switch page.Kind {
	case harvest.KindHashtag:
		articles, err = r.hashtagger.Fetch(ctx, page, target, report)
	default:
		articles, err = r.searcher.Fetch(ctx, page, target, report)
	}
	if err == nil {
		return articles, nil
	}

	slog.Warn("API harvest failed, falling back to DOM collection",
		"kind", page.Kind, "error", err)

	if livePage == nil {
		return nil, models.NewScrapeError(models.ErrCodeHarvest, "API harvest failed and no rendered page is available", err)
	}

	collector := browser.NewCollector(livePage, page.Base, r.scrollCfg)
	articles = collector.AutoScrollAndCollect(ctx, target, report)
	if len(articles) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeHarvest, "no articles collected", err)
	}
	return articles, nil
}
