package harvest

import (
	"context"
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

// Hashtagger paginates the hashtag JSON endpoint. Unlike the search endpoint
// it pages by number rather than offset, carries an explicit is_last_page
// flag, and keeps its item list at one stable path, so no tree search is
// needed — only the shared field normalizer.
type Hashtagger struct {
	client   *Client
	platform config.PlatformConfig
	timeout  time.Duration
	limiter  *rate.Limiter
}

// NewHashtagger creates a Hashtagger with the same pacing discipline as the
// search harvester.
func NewHashtagger(client *Client, platform config.PlatformConfig, cfg config.HarvestConfig) *Hashtagger {
	return &Hashtagger{
		client:   client,
		platform: platform,
		timeout:  cfg.RequestTimeout,
		limiter:  rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
	}
}

// Fetch collects up to target articles for the given hashtag page context.
// It stops on the response's is_last_page flag, on a page with no usable
// items, or when the target is reached.
func (h *Hashtagger) Fetch(ctx context.Context, page PageContext, target int, report ProgressFunc) ([]models.Article, error) {
	var collected []models.Article

	for pageNum := 1; len(collected) < target; pageNum++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("harvest: pacing interrupted: %w", err)
		}

		reqCtx, cancel := RequestContext(ctx, h.timeout)
		doc, err := h.client.GetJSON(reqCtx, h.pageRequestURL(page, pageNum))
		cancel()
		if err != nil {
			return nil, err
		}

		added := 0
		for _, item := range doc.Get("data.notes").Array() {
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

		slog.Debug("hashtag page harvested",
			"page", pageNum, "added", added, "collected", len(collected))

		if report != nil {
			report(len(collected))
		}
		if added == 0 || doc.Get("data.is_last_page").Bool() {
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

// pageRequestURL builds the hashtag endpoint URL for one page.
func (h *Hashtagger) pageRequestURL(page PageContext, pageNum int) string {
	q := url.Values{}
	q.Set("order", page.Sort)
	q.Set("page", strconv.Itoa(pageNum))
	return h.platform.BaseURL + h.platform.HashtagPath + "/" + url.PathEscape(page.Tag) + "/notes?" + q.Encode()
}
