package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/extract"
	"github.com/use-agent/noteharvest/models"
)

// ErrNoResults signals that a harvester finished without collecting a single
// article. Callers treat it like any other harvest error and fall back to
// DOM collection, but it lets "nothing available" be told apart from a
// transport failure in logs.
var ErrNoResults = errors.New("harvest: no results")

// ProgressFunc reports how many articles have been collected so far.
type ProgressFunc func(collected int)

// Searcher paginates the search JSON endpoint, offset by offset, normalizing
// each page through the tree locator and the field normalizer. Pages are
// requested strictly sequentially with a pacing limiter in between.
type Searcher struct {
	client   *Client
	platform config.PlatformConfig
	pageSize int
	timeout  time.Duration
	limiter  *rate.Limiter
}

// NewSearcher creates a Searcher. The limiter grants one request per
// PageDelay with a burst of one, so the first page goes out immediately and
// every later page waits.
func NewSearcher(client *Client, platform config.PlatformConfig, cfg config.HarvestConfig) *Searcher {
	return &Searcher{
		client:   client,
		platform: platform,
		pageSize: cfg.PageSize,
		timeout:  cfg.RequestTimeout,
		limiter:  rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
	}
}

// Fetch collects up to target articles for the given search page context.
// It stops successfully when a page yields zero normalized items (end of
// results) or the target is reached; excess items from the final page are
// discarded. Any transport, status or decode failure fails the whole call so
// the caller can fall back to DOM collection.
func (s *Searcher) Fetch(ctx context.Context, page PageContext, target int, report ProgressFunc) ([]models.Article, error) {
	var collected []models.Article

	for offset := 0; len(collected) < target; offset += s.pageSize {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("harvest: pacing interrupted: %w", err)
		}

		pageURL := s.pageRequestURL(page, offset)
		reqCtx, cancel := RequestContext(ctx, s.timeout)
		doc, err := s.client.GetJSON(reqCtx, pageURL)
		cancel()
		if err != nil {
			return nil, err
		}

		added := 0
		for _, item := range extract.Locate(doc) {
			article, ok := extract.Normalize(item, page.Base)
			if !ok {
				continue
			}
			collected = append(collected, article)
			added++
			if len(collected) >= target {
				break
			}
		}

		slog.Debug("search page harvested",
			"offset", offset, "added", added, "collected", len(collected))

		if report != nil {
			report(len(collected))
		}
		if added == 0 {
			break
		}
	}

	if len(collected) == 0 {
		return nil, ErrNoResults
	}
	if len(collected) > target {
		collected = collected[:target]
	}
	return collected, nil
}

// pageRequestURL builds the search endpoint URL for one page.
func (s *Searcher) pageRequestURL(page PageContext, offset int) string {
	q := url.Values{}
	q.Set("context", page.Context)
	q.Set("mode", page.Mode)
	q.Set("q", page.Query)
	q.Set("size", strconv.Itoa(s.pageSize))
	q.Set("start", strconv.Itoa(offset))
	q.Set("sort", page.Sort)
	return s.platform.BaseURL + s.platform.SearchPath + "?" + q.Encode()
}
