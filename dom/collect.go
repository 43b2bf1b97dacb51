// Package dom is the fallback harvester: a best-effort, synchronous scan of
// a rendered result page for article cards. It fills the same canonical
// Article shape as the API path, with missing fields defaulting to zero.
package dom

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/noteharvest/models"
)

// itemPathRe matches a single-article path, /<urlname>/n/<key>, with no
// trailing segments. Anything else (profile pages, magazine pages, deeper
// paths) is not an article link.
var itemPathRe = regexp.MustCompile(`^/([A-Za-z0-9._-]+)/n/([A-Za-z0-9]+)$`)

// maxAncestorClimb bounds the container search so a degenerate document
// cannot walk all the way to <html> for every link.
const maxAncestorClimb = 10

const maxTitleLen = 200

// Selector tables. Class names on the platform are hashed and change with
// every deploy, so substring matches on both casings are the best handle
// available.
var (
	iconSelector     = `svg, [class*="icon"], [class*="Icon"]`
	likeSelectors    = []string{`[class*="like"]`, `[class*="Like"]`, `[class*="heart"]`, `[class*="Heart"]`}
	priceSelectors   = []string{`[class*="price"]`, `[class*="Price"]`, `[class*="amount"]`, `[class*="Amount"]`}
	creatorSelectors = []string{
		`[class*="creator"]`, `[class*="Creator"]`,
		`[class*="author"]`, `[class*="Author"]`,
		`[class*="user"]`, `[class*="User"]`,
	}
)

const freeMarker = "無料"

var (
	numberRe = regexp.MustCompile(`\d[\d,]*`)
	priceRe  = regexp.MustCompile(`[¥￥]\s*(\d[\d,]*)`)
)

// Collect scans the rendered page for article anchors and returns one
// Article per distinct absolute URL. It never fails: unparsable input or a
// page without article links yields an empty result.
func Collect(pageHTML string, base *url.URL) []models.Article {
	if base == nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var articles []models.Article

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		absURL, urlname, ok := resolveItemURL(href, base)
		if !ok {
			return
		}
		if _, dup := seen[absURL]; dup {
			return
		}

		container := itemContainer(link, absURL, base)
		title := itemTitle(link, container)
		if title == "" {
			return
		}
		seen[absURL] = struct{}{}

		articles = append(articles, models.Article{
			Title:     title,
			LikeCount: itemLikes(container),
			Price:     itemPrice(container),
			URL:       absURL,
			Creator:   itemCreator(container, urlname),
		})
	})

	return articles
}

// resolveItemURL checks whether href points at a single article on the
// platform and returns its absolute URL plus the author's urlname segment.
func resolveItemURL(href string, base *url.URL) (absURL, urlname string, ok bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}
	resolved := base.ResolveReference(ref)
	if !strings.EqualFold(resolved.Host, base.Host) {
		return "", "", false
	}
	m := itemPathRe.FindStringSubmatch(resolved.Path)
	if m == nil {
		return "", "", false
	}
	return resolved.Scheme + "://" + resolved.Host + resolved.Path, m[1], true
}

// itemContainer ascends from the link to the largest ancestor that still
// belongs to this article alone: the climb stops as soon as an ancestor also
// contains a link to a different article, returning the level just below it.
// If no such boundary appears within the climb bound, the link's immediate
// parent is used.
func itemContainer(link *goquery.Selection, ownURL string, base *url.URL) *goquery.Selection {
	best := link.Parent()
	cur := link.Parent()
	for depth := 0; depth < maxAncestorClimb && cur.Length() > 0; depth++ {
		if containsOtherItemLink(cur, ownURL, base) {
			return best
		}
		best = cur
		cur = cur.Parent()
	}
	return link.Parent()
}

// containsOtherItemLink reports whether the selection holds an article link
// with a target different from ownURL.
func containsOtherItemLink(sel *goquery.Selection, ownURL string, base *url.URL) bool {
	found := false
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		absURL, _, ok := resolveItemURL(href, base)
		if ok && absURL != ownURL {
			found = true
			return false
		}
		return true
	})
	return found
}

// itemTitle resolves the article title, trying in order: a heading inside
// the link, the link's aria-label, its title attribute, a heading inside the
// container, and finally the link's own visible text.
func itemTitle(link, container *goquery.Selection) string {
	if h := link.Find("h1,h2,h3,h4,h5,h6").First(); h.Length() > 0 {
		if t := cleanText(h.Text()); t != "" {
			return t
		}
	}
	if v, ok := link.Attr("aria-label"); ok {
		if t := cleanText(v); t != "" {
			return t
		}
	}
	if v, ok := link.Attr("title"); ok {
		if t := cleanText(v); t != "" {
			return t
		}
	}
	if h := container.Find("h1,h2,h3,h4,h5,h6").First(); h.Length() > 0 {
		if t := cleanText(h.Text()); t != "" {
			return t
		}
	}
	return firstLine(link.Text())
}

// itemLikes scans icon markers for an adjacent numeric text, then falls back
// to like/heart class-substring selectors.
func itemLikes(container *goquery.Selection) int {
	likes := 0
	container.Find(iconSelector).EachWithBreak(func(_ int, marker *goquery.Selection) bool {
		if n := parseCount(marker.Next().Text()); n > 0 {
			likes = n
			return false
		}
		if n := parseCount(marker.Parent().Text()); n > 0 {
			likes = n
			return false
		}
		return true
	})
	if likes > 0 {
		return likes
	}

	for _, sel := range likeSelectors {
		if el := container.Find(sel).First(); el.Length() > 0 {
			if n := parseCount(el.Text()); n > 0 {
				return n
			}
		}
	}
	return 0
}

// itemPrice tries price-like elements first, short-circuiting to 0 (free)
// on the free marker, then falls back to a currency-prefixed number
// anywhere in the container text.
func itemPrice(container *goquery.Selection) int {
	for _, sel := range priceSelectors {
		el := container.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := el.Text()
		if strings.Contains(text, freeMarker) {
			return 0
		}
		if n := parseCount(text); n > 0 {
			return n
		}
	}

	if m := priceRe.FindStringSubmatch(container.Text()); m != nil {
		return parseCount(m[1])
	}
	return 0
}

// itemCreator tries author-like elements holding a plausibly short name,
// then derives the creator from the URL's urlname segment.
func itemCreator(container *goquery.Selection, urlname string) string {
	for _, sel := range creatorSelectors {
		el := container.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		t := cleanText(el.Text())
		if n := utf8.RuneCountInString(t); n >= 1 && n < 100 {
			return t
		}
	}
	return urlname
}

// parseCount extracts the first number from s, tolerating comma grouping.
func parseCount(s string) int {
	m := numberRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// cleanText collapses whitespace runs into single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstLine returns the first non-blank line of s, capped at maxTitleLen
// runes.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		t := cleanText(line)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTitleLen {
			return string([]rune(t)[:maxTitleLen])
		}
		return t
	}
	return ""
}
