package browser

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/dom"
	"github.com/use-agent/noteharvest/models"
)

// PageSource is the slice of a live page the collector needs. *Page
// satisfies it; tests substitute a fake.
type PageSource interface {
	HTML() (string, error)
	ScrollToBottom() error
}

// SleepFunc waits for d or until ctx is done. Injected so pacing is a
// swappable policy rather than an inline wait.
type SleepFunc func(ctx context.Context, d time.Duration)

func defaultSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Collector drives the DOM harvester over a scrolling page: harvest, scroll
// to the bottom, wait for new cards to render, harvest again. It terminates
// when the target is reached or the article count stops growing for
// StagnationThreshold consecutive rounds, keeping whatever was collected.
type Collector struct {
	source    PageSource
	base      *url.URL
	wait      time.Duration
	threshold int
	sleep     SleepFunc
}

// NewCollector creates a Collector reading from source. base qualifies the
// relative links found in the page.
func NewCollector(source PageSource, base *url.URL, cfg config.ScrollConfig) *Collector {
	return &Collector{
		source:    source,
		base:      base,
		wait:      cfg.RenderWait,
		threshold: cfg.StagnationThreshold,
		sleep:     defaultSleep,
	}
}

// SetSleep overrides the inter-scroll wait policy. Used by tests.
func (c *Collector) SetSleep(sleep SleepFunc) {
	c.sleep = sleep
}

// AutoScrollAndCollect runs the collection loop. It never fails: a page that
// stops producing new articles yields a short result rather than an error.
// report, when non-nil, is called after every round with the count so far
// (capped at target).
func (c *Collector) AutoScrollAndCollect(ctx context.Context, target int, report func(collected int)) []models.Article {
	best := []models.Article{}
	stagnant := 0

	for {
		pageHTML, err := c.source.HTML()
		if err != nil {
			slog.Warn("reading rendered page failed", "error", err)
			stagnant++
		} else {
			got := dom.Collect(pageHTML, c.base)
			if len(got) > len(best) {
				best = got
				stagnant = 0
			} else {
				stagnant++
			}
		}

		if report != nil {
			n := len(best)
			if n > target {
				n = target
			}
			report(n)
		}

		if len(best) >= target {
			return best[:target]
		}
		if stagnant >= c.threshold {
			slog.Info("scroll collection stagnated",
				"collected", len(best), "target", target, "rounds", stagnant)
			return best
		}
		if ctx.Err() != nil {
			return best
		}

		if err := c.source.ScrollToBottom(); err != nil {
			slog.Warn("scroll failed", "error", err)
		}
		c.sleep(ctx, c.wait)
	}
}
