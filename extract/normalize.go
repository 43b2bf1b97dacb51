package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/use-agent/noteharvest/models"
)

// Field name variants observed across the platform's endpoints. Order matters:
// the first candidate holding a usable value wins.
var (
	titleCandidates = []string{"name", "title", "headline"}
	likeCandidates  = []string{
		"like_count", "likeCount", "likes_count", "likesCount",
		"sp_count", "spCount", "suki_count", "sukiCount",
	}
	priceCandidates   = []string{"price", "amount", "body_price", "bodyPrice"}
	urlCandidates     = []string{"note_url", "noteUrl", "url"}
	keyCandidates     = []string{"key", "slug"}
	creatorCandidates = []string{"creator_name", "creatorName", "author_name", "authorName"}

	// userObjectKeys are the nested objects a creator name may hide in, and
	// userFieldKeys the fields tried inside each, in order.
	userObjectKeys = []string{"user", "creator", "author"}
	userFieldKeys  = []string{"nickname", "name", "urlname", "display_name"}
)

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// Normalize reconciles one raw item into the canonical Article shape.
// ok is false when the item is not an object or no title candidate resolves
// to a non-empty string; such items are dropped by callers, not surfaced as
// errors.
//
// The item may nest the real record under a "note" key; that inner view takes
// precedence over the outer object's sibling fields of the same name. URL
// fields are the exception: a direct absolute URL on either view beats any
// constructed URL.
func Normalize(item gjson.Result, base *url.URL) (models.Article, bool) {
	if !item.IsObject() {
		return models.Article{}, false
	}

	views := []gjson.Result{item}
	if inner := item.Get("note"); inner.IsObject() {
		views = []gjson.Result{inner, item}
	}

	title := strings.TrimSpace(firstValue(views, titleCandidates).String())
	if title == "" {
		return models.Article{}, false
	}

	return models.Article{
		Title:     title,
		LikeCount: firstNumber(views, likeCandidates),
		Price:     firstNumber(views, priceCandidates),
		URL:       resolveURL(views, base),
		Creator:   resolveCreator(views),
	}, true
}

// firstValue returns the first existing non-null candidate field, checking
// every candidate on the inner view before falling back to the outer item.
func firstValue(views []gjson.Result, keys []string) gjson.Result {
	for _, view := range views {
		for _, key := range keys {
			if f := view.Get(key); f.Exists() && f.Type != gjson.Null {
				return f
			}
		}
	}
	return gjson.Result{}
}

// firstNumber returns the first candidate that parses to a number. Numeric
// strings ("1500") count; non-numeric strings ("無料") are treated as absent
// and fall through to the next candidate. Defaults to 0, never negative.
func firstNumber(views []gjson.Result, keys []string) int {
	for _, view := range views {
		for _, key := range keys {
			f := view.Get(key)
			if !f.Exists() || f.Type == gjson.Null {
				continue
			}
			switch f.Type {
			case gjson.Number:
				return clampNonNegative(int(f.Num))
			case gjson.String:
				if n, err := strconv.ParseFloat(strings.TrimSpace(f.Str), 64); err == nil {
					return clampNonNegative(int(n))
				}
			}
		}
	}
	return 0
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// resolveURL resolves the article URL:
//
//	(a) a direct URL field already carrying a scheme wins outright;
//	(b) else a URL constructed from an identifier plus the author's urlname,
//	    shaped <base>/<urlname>/n/<key>;
//	(c) else a relative href, domain-qualified against base;
//	(d) else empty.
func resolveURL(views []gjson.Result, base *url.URL) string {
	for _, view := range views {
		for _, key := range urlCandidates {
			if s := strings.TrimSpace(view.Get(key).String()); schemeRe.MatchString(s) {
				return s
			}
		}
	}

	if base != nil {
		key := strings.TrimSpace(firstValue(views, keyCandidates).String())
		urlname := resolveURLName(views)
		if key != "" && urlname != "" {
			return base.Scheme + "://" + base.Host + "/" + urlname + "/n/" + key
		}

		if href := strings.TrimSpace(firstValue(views, []string{"href"}).String()); href != "" {
			if schemeRe.MatchString(href) {
				return href
			}
			if !strings.HasPrefix(href, "/") {
				href = "/" + href
			}
			return base.Scheme + "://" + base.Host + href
		}
	}

	return ""
}

// resolveURLName finds the author's urlname, either on a nested user-like
// object or directly on the item.
func resolveURLName(views []gjson.Result) string {
	for _, view := range views {
		for _, objKey := range userObjectKeys {
			if obj := view.Get(objKey); obj.IsObject() {
				if s := strings.TrimSpace(obj.Get("urlname").String()); s != "" {
					return s
				}
			}
		}
	}
	return strings.TrimSpace(firstValue(views, []string{"urlname"}).String())
}

// resolveCreator finds a display name on a nested user-like object first,
// then on flat creator-name fields. Empty when nothing matches.
func resolveCreator(views []gjson.Result) string {
	for _, view := range views {
		for _, objKey := range userObjectKeys {
			obj := view.Get(objKey)
			if !obj.IsObject() {
				continue
			}
			for _, field := range userFieldKeys {
				if s := strings.TrimSpace(obj.Get(field).String()); s != "" {
					return s
				}
			}
		}
	}
	return strings.TrimSpace(firstValue(views, creatorCandidates).String())
}
