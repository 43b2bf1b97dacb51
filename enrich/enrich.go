// Package enrich resolves the high-rating counter for already-collected
// articles. The counter is a different metric from the like count and is
// absent from the list endpoints, so each article needs a secondary fetch:
// detail API first, then the article's own page markup through a cascade of
// script-payload and text-pattern heuristics. Every failure degrades to 0.
package enrich

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/use-agent/noteharvest/cache"
	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/harvest"
	"github.com/use-agent/noteharvest/models"
)

// ratingCandidates are the field names the high-rating counter has been seen
// under. The like-count variants are deliberately not in this list: the two
// counters are distinct metrics and the like count must never leak into the
// rating column.
var ratingCandidates = []string{
	"high_rating_count", "highRatingCount",
	"rating_count", "ratingCount",
	"good_count", "goodCount",
	"praise_count", "praiseCount",
}

// ratingViews are the paths tried on the detail API response, nested item
// view before top level.
var ratingViews = []string{"data.note", "data", ""}

// Resolved ratings are kept for an hour; repeat runs over the same search hit
// mostly the same articles. Only positive resolutions are cached so a
// transient failure is retried next run.
const (
	ratingCacheSize = 4096
	ratingCacheTTL  = time.Hour
)

var (
	ratingTextRe      = regexp.MustCompile(`(\d[\d,]*)\s*人が高く評価`)
	quotedCandidateRe = regexp.MustCompile(`"(?:` + strings.Join(ratingCandidates, "|") + `)"\s*:\s*(\d+)`)
)

// Fetcher resolves high-rating counts. LikeRating never returns an error;
// EnrichAll drives it strictly sequentially with a pacing limiter, so a run
// cannot hammer the platform.
type Fetcher struct {
	client   *harvest.Client
	platform config.PlatformConfig
	timeout  time.Duration
	limiter  *rate.Limiter
	ratings  *cache.Ratings

	// One-shot log guards so a run with hundreds of articles does not flood
	// the log with the same failure. Reset per run by EnrichAll; LikeRating
	// is not meant for concurrent use.
	loggedAPIMiss    bool
	loggedNetworkErr bool
	loggedHTMLErr    bool
}

// NewFetcher creates a Fetcher sharing the harvest client (and therefore its
// ambient credentials).
func NewFetcher(client *harvest.Client, platform config.PlatformConfig, cfg config.EnrichConfig) *Fetcher {
	return &Fetcher{
		client:   client,
		platform: platform,
		timeout:  cfg.RequestTimeout,
		limiter:  rate.NewLimiter(rate.Every(cfg.ArticleDelay), 1),
		ratings:  cache.NewRatings(ratingCacheSize, ratingCacheTTL),
	}
}

// LikeRating resolves the high-rating count for one article URL. Cascade,
// first success wins:
//
//  1. detail API, rating field candidates on the nested item view then the
//     top-level body;
//  2. the article page's markup: a literal "N人が高く評価" text pattern, a
//     depth-bounded search of the structured script payload, the legacy
//     embedded state blob, and finally a bare quoted-field regex.
//
// A network-level API failure skips the HTML fallback entirely: the page
// fetch would hit the same unreachable origin. An HTTP error status or an
// unparsable API body falls through to the page cascade. Any failure
// yields 0.
// Positive resolutions are cached, so repeat runs over the same articles skip
// the fetches.
func (f *Fetcher) LikeRating(ctx context.Context, articleURL string) int {
	key := noteKey(articleURL)
	if key == "" {
		return 0
	}

	if n, ok := f.ratings.Get(key); ok {
		return n
	}
	n := f.resolve(ctx, key, articleURL)
	if n > 0 {
		f.ratings.Set(key, n)
	}
	return n
}

func (f *Fetcher) resolve(ctx context.Context, key, articleURL string) int {
	apiCtx, cancel := harvest.RequestContext(ctx, f.timeout)
	doc, err := f.client.GetJSON(apiCtx, f.platform.BaseURL+f.platform.NotePath+"/"+url.PathEscape(key))
	cancel()
	if err == nil {
		if n, ok := ratingFromJSON(doc); ok {
			return n
		}
	} else {
		var statusErr *harvest.StatusError
		switch {
		case errors.As(err, &statusErr):
			if !f.loggedAPIMiss {
				f.loggedAPIMiss = true
				slog.Debug("detail API returned no rating, falling back to page markup", "status", statusErr.StatusCode)
			}
		case errors.Is(err, harvest.ErrInvalidJSON):
			// The origin answered but not with the expected body (maintenance
			// page, HTML error page). The article page itself may still work.
			if !f.loggedAPIMiss {
				f.loggedAPIMiss = true
				slog.Debug("detail API returned unparsable body, falling back to page markup", "error", err)
			}
		default:
			if !f.loggedNetworkErr {
				f.loggedNetworkErr = true
				slog.Warn("detail API unreachable, skipping page fallback for this and further failures", "error", err)
			}
			return 0
		}
	}

	pageCtx, cancel := harvest.RequestContext(ctx, f.timeout)
	pageHTML, err := f.client.GetHTML(pageCtx, articleURL)
	cancel()
	if err != nil {
		if !f.loggedHTMLErr {
			f.loggedHTMLErr = true
			slog.Warn("article page fetch failed", "error", err)
		}
		return 0
	}

	if n, ok := ratingFromText(pageHTML); ok {
		return n
	}
	if n, ok := ratingFromScriptPayload(pageHTML); ok {
		return n
	}
	if n, ok := ratingFromInitialState(pageHTML); ok {
		return n
	}
	if n, ok := ratingFromBareRegex(pageHTML); ok {
		return n
	}
	return 0
}

// EnrichAll resolves the rating for every article strictly sequentially with
// an inter-article delay, and returns a new list preserving order and all
// other fields. report, when non-nil, is called after each article.
func (f *Fetcher) EnrichAll(ctx context.Context, articles []models.Article, report func(done int)) []models.Article {
	f.loggedAPIMiss = false
	f.loggedNetworkErr = false
	f.loggedHTMLErr = false

	out := make([]models.Article, 0, len(articles))
	for i, article := range articles {
		rating := 0
		if err := f.limiter.Wait(ctx); err == nil {
			rating = f.LikeRating(ctx, article.URL)
		}
		out = append(out, article.WithLikeRating(rating))
		if report != nil {
			report(i + 1)
		}
	}
	return out
}

// noteKey extracts the article identifier from the URL's final path segment.
func noteKey(articleURL string) string {
	if articleURL == "" {
		return ""
	}
	u, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// ratingFromJSON searches the detail API response for a rating candidate,
// nested item view first.
func ratingFromJSON(doc gjson.Result) (int, bool) {
	for _, path := range ratingViews {
		view := doc
		if path != "" {
			view = doc.Get(path)
		}
		if !view.IsObject() {
			continue
		}
		for _, key := range ratingCandidates {
			if n, ok := numericField(view.Get(key)); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// ratingFromText matches the visible "N人が高く評価" phrasing.
func ratingFromText(pageHTML string) (int, bool) {
	m := ratingTextRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return 0, false
	}
	return parseGroupedNumber(m[1])
}

// ratingFromInitialState searches the legacy embedded state blob.
func ratingFromInitialState(pageHTML string) (int, bool) {
	start := strings.Index(pageHTML, "__INITIAL_STATE__")
	if start < 0 {
		return 0, false
	}
	blob := pageHTML[start:]
	if end := strings.Index(blob, "</script>"); end >= 0 {
		blob = blob[:end]
	}
	m := quotedCandidateRe.FindStringSubmatch(blob)
	if m == nil {
		return 0, false
	}
	return parseGroupedNumber(m[1])
}

// ratingFromBareRegex is the last resort: a quoted candidate/number pair
// anywhere in the page text.
func ratingFromBareRegex(pageHTML string) (int, bool) {
	m := quotedCandidateRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return 0, false
	}
	return parseGroupedNumber(m[1])
}

func numericField(f gjson.Result) (int, bool) {
	switch f.Type {
	case gjson.Number:
		if f.Num < 0 {
			return 0, false
		}
		return int(f.Num), true
	case gjson.String:
		return parseGroupedNumber(f.Str)
	}
	return 0, false
}

func parseGroupedNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
