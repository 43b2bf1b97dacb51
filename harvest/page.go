package harvest

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind is the page context a run operates in. Search pages are harvested via
// the offset-paginated search API; hashtag pages via the page-numbered
// hashtag API.
type Kind string

const (
	KindSearch  Kind = "search"
	KindHashtag Kind = "hashtag"
)

// PageContext captures everything the harvesters need from the result page's
// URL: the page kind and its query-string parameters, with defaults applied
// where the page omits them.
type PageContext struct {
	Kind Kind

	// Base is the parsed page URL; its scheme and host qualify constructed
	// and relative article URLs.
	Base *url.URL

	// Query is the search text (search pages).
	Query string

	// Context narrows the search corpus. Default "note".
	Context string

	// Mode is the search mode. Default "search".
	Mode string

	// Sort order. Default "popular" for searches, "new" for hashtags.
	Sort string

	// Tag is the hashtag, without the leading "#" (hashtag pages).
	Tag string
}

// ParsePage derives the page context from a result page URL. It fails when
// the URL is not a search or hashtag result page — that is caller misuse,
// surfaced before any work starts.
func ParsePage(pageURL string) (PageContext, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return PageContext{}, fmt.Errorf("harvest: parse page url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return PageContext{}, fmt.Errorf("harvest: page url %q is not absolute", pageURL)
	}

	q := u.Query()
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case segments[0] == "search":
		return PageContext{
			Kind:    KindSearch,
			Base:    u,
			Query:   q.Get("q"),
			Context: valueOr(q.Get("context"), "note"),
			Mode:    valueOr(q.Get("mode"), "search"),
			Sort:    valueOr(q.Get("sort"), "popular"),
		}, nil

	case segments[0] == "hashtag" && len(segments) >= 2 && segments[1] != "":
		return PageContext{
			Kind: KindHashtag,
			Base: u,
			Tag:  strings.TrimPrefix(segments[1], "#"),
			Sort: valueOr(q.Get("sort"), "new"),
		}, nil
	}

	return PageContext{}, fmt.Errorf("harvest: %q is not a search or hashtag page", pageURL)
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
