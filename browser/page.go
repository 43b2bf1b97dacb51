package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/noteharvest/models"
)

// blockedResourceTypes are never needed for harvesting: the DOM scan reads
// markup only, so skipping these makes scroll rounds render much faster.
var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// Page is one navigated result page. It is the scroll collector's source of
// rendered HTML and the origin of the ambient credentials the HTTP client
// reuses.
type Page struct {
	page   *rod.Page
	router *rod.HijackRouter
}

// OpenPage creates a tab, installs stealth and resource blocking, navigates
// to pageURL and waits for the DOM to settle.
//
// Stealth JS and the hijack router must both be installed before Navigate:
// they only take effect for navigations that happen after they are mounted.
func (b *Browser) OpenPage(ctx context.Context, pageURL string) (*Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	router := setupHijack(page)

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "ja,en-US;q=0.9,en;q=0.8",
		}),
	}.Call(page)

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if navErr := p.Navigate(pageURL); navErr != nil {
		if router != nil {
			_ = router.Stop()
		}
		_ = page.Close()
		return nil, categorizeError(navErr, "navigation to result page failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	return &Page{page: page, router: router}, nil
}

// HTML returns the page's current rendered markup.
func (p *Page) HTML() (string, error) {
	return p.page.HTML()
}

// ScrollToBottom jumps the viewport to the bottom of the document so
// lazy-loaded result cards are triggered.
func (p *Page) ScrollToBottom() error {
	_, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// CookieHeader renders the page's current cookies as a Cookie header value,
// so plain HTTP requests carry the same credentials as the page context.
func (p *Page) CookieHeader() (string, error) {
	cookies, err := p.page.Cookies(nil)
	if err != nil {
		return "", err
	}
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; "), nil
}

// Close stops the hijack router and closes the tab.
func (p *Page) Close() {
	if p.router != nil {
		_ = p.router.Stop()
	}
	_ = p.page.Close()
}

// setupHijack installs a request interceptor blocking heavyweight resource
// types. Returns the running router so Close can stop it.
func setupHijack(page *rod.Page) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedResourceTypes))
	for _, rt := range blockedResourceTypes {
		blocked[rt] = struct{}{}
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	go router.Run()

	return router
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "navigation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
