package dom

import (
	"net/url"
	"strings"
	"testing"
)

func pageBase(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://note.example/search?q=go")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCollect_SeparatesCards(t *testing.T) {
	// The like badge sits outside the link's immediate parent, so the
	// container ascent has to climb to the <article> level — and stop there,
	// because <main> also contains the other card's link.
	html := `
	<main>
	  <article>
	    <div class="inner"><a href="/alice/n/n001"><h3>First post</h3></a></div>
	    <div class="meta"><span class="likeBadge">12</span><span class="priceTag">¥1,500</span><span class="creatorName">Alice</span></div>
	  </article>
	  <article>
	    <div class="inner"><a href="/bob/n/n002"><h3>Second post</h3></a></div>
	    <div class="meta"><span class="likeBadge">7</span><span class="priceTag">無料</span><span class="creatorName">Bob</span></div>
	  </article>
	</main>`

	got := Collect(html, pageBase(t))
	if len(got) != 2 {
		t.Fatalf("collected %d articles, want 2", len(got))
	}

	first := got[0]
	if first.Title != "First post" || first.LikeCount != 12 || first.Price != 1500 ||
		first.URL != "https://note.example/alice/n/n001" || first.Creator != "Alice" {
		t.Errorf("first card = %+v", first)
	}

	second := got[1]
	if second.Title != "Second post" || second.LikeCount != 7 || second.Price != 0 ||
		second.URL != "https://note.example/bob/n/n002" || second.Creator != "Bob" {
		t.Errorf("second card = %+v", second)
	}
}

func TestCollect_DeduplicatesByURL(t *testing.T) {
	// Thumbnail link and title link point at the same article.
	html := `
	<div class="card">
	  <a href="/alice/n/n001"><img src="thumb.png"></a>
	  <a href="/alice/n/n001"><h3>Post</h3></a>
	</div>`

	got := Collect(html, pageBase(t))
	if len(got) != 1 {
		t.Fatalf("collected %d articles, want 1 after dedup", len(got))
	}
	if got[0].Title != "Post" {
		t.Errorf("Title = %q, want heading found via the shared container", got[0].Title)
	}
}

func TestCollect_IgnoresNonArticleLinks(t *testing.T) {
	html := `
	<div>
	  <a href="/alice">profile</a>
	  <a href="/alice/n/n001/comments">comments</a>
	  <a href="https://other.example/alice/n/n001">foreign host</a>
	  <a href="/magazines/m1">magazine</a>
	</div>`

	if got := Collect(html, pageBase(t)); len(got) != 0 {
		t.Errorf("collected %d articles from non-article links, want 0", len(got))
	}
}

func TestCollect_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"aria-label over link text",
			`<div><a href="/a/n/n1" aria-label="Labelled title">thumb</a></div>`,
			"Labelled title",
		},
		{
			"title attribute",
			`<div><a href="/a/n/n1" title="Attr title">thumb</a></div>`,
			"Attr title",
		},
		{
			"container heading",
			`<div><a href="/a/n/n1"><img></a><h2>Container heading</h2></div>`,
			"Container heading",
		},
		{
			"link text last",
			`<div><a href="/a/n/n1">Visible  link   text</a></div>`,
			"Visible link text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Collect(tt.html, pageBase(t))
			if len(got) != 1 {
				t.Fatalf("collected %d articles, want 1", len(got))
			}
			if got[0].Title != tt.want {
				t.Errorf("Title = %q, want %q", got[0].Title, tt.want)
			}
		})
	}
}

func TestCollect_DropsTitlelessLinks(t *testing.T) {
	html := `<div><a href="/a/n/n1"><img src="x.png"></a></div>`
	if got := Collect(html, pageBase(t)); len(got) != 0 {
		t.Errorf("collected %d articles with no resolvable title, want 0", len(got))
	}
}

func TestCollect_TitleLengthCap(t *testing.T) {
	long := strings.Repeat("あ", 250)
	html := `<div><a href="/a/n/n1">` + long + `</a></div>`
	got := Collect(html, pageBase(t))
	if len(got) != 1 {
		t.Fatalf("collected %d articles, want 1", len(got))
	}
	if n := len([]rune(got[0].Title)); n != 200 {
		t.Errorf("title length = %d runes, want capped at 200", n)
	}
}

func TestCollect_LikesNextToIcon(t *testing.T) {
	html := `
	<div class="card">
	  <a href="/a/n/n1"><h3>T</h3></a>
	  <span class="statusIcon"></span><span>34</span>
	</div>`
	got := Collect(html, pageBase(t))
	if len(got) != 1 || got[0].LikeCount != 34 {
		t.Errorf("got %+v, want like count 34 from icon sibling", got)
	}
}

func TestCollect_PriceFromCurrencyText(t *testing.T) {
	html := `
	<div class="card">
	  <a href="/a/n/n1"><h3>T</h3></a>
	  <span>販売中 ¥300</span>
	</div>`
	got := Collect(html, pageBase(t))
	if len(got) != 1 || got[0].Price != 300 {
		t.Errorf("got %+v, want price 300 from currency marker", got)
	}
}

func TestCollect_CreatorFromURLName(t *testing.T) {
	html := `<div class="card"><a href="/alice/n/n1"><h3>T</h3></a></div>`
	got := Collect(html, pageBase(t))
	if len(got) != 1 || got[0].Creator != "alice" {
		t.Errorf("got %+v, want creator derived from path segment", got)
	}
}

func TestCollect_DegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty", ""},
		{"no links", "<html><body><p>nothing here</p></body></html>"},
		{"broken markup", "<div><a href='/a/n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Collect(tt.html, pageBase(t)); len(got) != 0 {
				t.Errorf("collected %d articles, want 0", len(got))
			}
		})
	}
}

func TestCollect_NilBase(t *testing.T) {
	if got := Collect(`<a href="/a/n/n1">t</a>`, nil); got != nil {
		t.Errorf("Collect with nil base = %v, want nil", got)
	}
}
