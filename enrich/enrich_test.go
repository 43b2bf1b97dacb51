package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/noteharvest/config"
	"github.com/use-agent/noteharvest/harvest"
	"github.com/use-agent/noteharvest/models"
)

func testEnrichConfig() config.EnrichConfig {
	return config.EnrichConfig{
		ArticleDelay:   time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

func newFetcherFor(baseURL string) *Fetcher {
	platform := config.PlatformConfig{BaseURL: baseURL, NotePath: "/api/v3/notes"}
	return NewFetcher(harvest.NewClient(), platform, testEnrichConfig())
}

func TestLikeRating_FromDetailAPI(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"nested note view", `{"data":{"note":{"high_rating_count":7}}}`, 7},
		{"data view", `{"data":{"rating_count":12}}`, 12},
		{"top level", `{"good_count":3}`, 3},
		{"numeric string with grouping", `{"data":{"note":{"praise_count":"1,024"}}}`, 1024},
		{"nested beats top level", `{"rating_count":99,"data":{"note":{"rating_count":5}}}`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v3/notes/n1" {
					http.NotFound(w, r)
					return
				}
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			f := newFetcherFor(srv.URL)
			if got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1"); got != tt.want {
				t.Errorf("LikeRating = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLikeRating_LikeCountNeverLeaks(t *testing.T) {
	// The detail response carries engagement counters but no rating field,
	// and the page markup has none either: the rating must stay 0 rather
	// than borrow the like count.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/notes/n1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"note":{"like_count":99,"suki_count":99}}}`)
	})
	mux.HandleFunc("/alice/n/n1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>99 likes</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcherFor(srv.URL)
	if got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1"); got != 0 {
		t.Errorf("LikeRating = %d, want 0 when only like counters exist", got)
	}
}

func TestLikeRating_PageFallbacks(t *testing.T) {
	tests := []struct {
		name string
		page string
		want int
	}{
		{
			"visible text pattern",
			`<html><body><p>1,234人が高く評価</p></body></html>`,
			1234,
		},
		{
			"script payload",
			`<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"rating_count":9}}}</script></body></html>`,
			9,
		},
		{
			"initial state blob",
			`<html><body><script>window.__INITIAL_STATE__ = {"note":{"high_rating_count":21}};</script></body></html>`,
			21,
		},
		{
			"bare quoted pair",
			`<html><body><div data-x='{"goodCount": 4}'></div></body></html>`,
			4,
		},
		{
			"nothing",
			`<html><body><p>plain article</p></body></html>`,
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v3/notes/", func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			})
			mux.HandleFunc("/alice/n/n1", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.page)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			f := newFetcherFor(srv.URL)
			if got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1"); got != tt.want {
				t.Errorf("LikeRating = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLikeRating_UnparsableAPIBodyFallsBackToPage(t *testing.T) {
	// The detail endpoint answers 200 with an HTML maintenance page instead
	// of JSON. That is not a transport failure: the article page still works
	// and must be consulted.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/notes/n1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>メンテナンス中</h1></body></html>`)
	})
	mux.HandleFunc("/alice/n/n1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>5人が高く評価</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newFetcherFor(srv.URL)
	if got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1"); got != 5 {
		t.Errorf("LikeRating = %d, want 5 from the page after an unparsable API body", got)
	}
}

func TestLikeRating_SlowDetailAPIBoundedByTimeout(t *testing.T) {
	// The detail endpoint stalls past the per-request bound. The deadline
	// surfaces as a network-level failure, so the whole resolution yields 0
	// instead of hanging for the full server delay.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, `{"data":{"note":{"high_rating_count":7}}}`)
	}))
	defer srv.Close()

	cfg := testEnrichConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	platform := config.PlatformConfig{BaseURL: srv.URL, NotePath: "/api/v3/notes"}
	f := NewFetcher(harvest.NewClient(), platform, cfg)

	start := time.Now()
	got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1")
	if got != 0 {
		t.Errorf("LikeRating = %d, want 0 when the detail fetch times out", got)
	}
	if elapsed := time.Since(start); elapsed >= 300*time.Millisecond {
		t.Errorf("resolution took %v, want the request bound to cut it short", elapsed)
	}
}

func TestLikeRating_NetworkFailureSkipsPage(t *testing.T) {
	var pageHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		fmt.Fprint(w, `<html><body><p>50人が高く評価</p></body></html>`)
	}))
	defer srv.Close()

	// The detail API origin refuses connections, so even though the article
	// page itself would answer, the fallback is skipped.
	f := newFetcherFor("http://127.0.0.1:1")
	if got := f.LikeRating(context.Background(), srv.URL+"/alice/n/n1"); got != 0 {
		t.Errorf("LikeRating = %d, want 0 on network-level failure", got)
	}
	if pageHits.Load() != 0 {
		t.Errorf("article page fetched %d times, want 0", pageHits.Load())
	}
}

func TestLikeRating_UnusableURL(t *testing.T) {
	f := newFetcherFor("http://127.0.0.1:1")
	if got := f.LikeRating(context.Background(), ""); got != 0 {
		t.Errorf("LikeRating(\"\") = %d, want 0", got)
	}
}

func TestEnrichAll(t *testing.T) {
	ratings := map[string]string{
		"/api/v3/notes/n1": `{"data":{"note":{"high_rating_count":5}}}`,
		"/api/v3/notes/n3": `{"data":{"note":{"high_rating_count":11}}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := ratings[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	articles := []models.Article{
		{Title: "one", LikeCount: 1, Price: 100, URL: srv.URL + "/a/n/n1", Creator: "A"},
		{Title: "two", LikeCount: 2, URL: srv.URL + "/b/n/n2", Creator: "B"},
		{Title: "three", LikeCount: 3, URL: srv.URL + "/c/n/n3", Creator: "C"},
	}

	var reports []int
	f := newFetcherFor(srv.URL)
	got := f.EnrichAll(context.Background(), articles, func(done int) {
		reports = append(reports, done)
	})

	if len(got) != 3 {
		t.Fatalf("enriched %d articles, want 3", len(got))
	}
	wantRatings := []int{5, 0, 11}
	for i, a := range got {
		if a.LikeRating != wantRatings[i] {
			t.Errorf("article %d rating = %d, want %d", i, a.LikeRating, wantRatings[i])
		}
	}
	// Every other field survives untouched.
	if got[0].Title != "one" || got[0].LikeCount != 1 || got[0].Price != 100 || got[0].Creator != "A" {
		t.Errorf("fields mutated: %+v", got[0])
	}
	if len(reports) != 3 || reports[2] != 3 {
		t.Errorf("reports = %v, want [1 2 3]", reports)
	}
	// The input must not have been written through.
	if articles[0].LikeRating != 0 {
		t.Error("input slice mutated")
	}
}

func TestLikeRating_CachesPositiveResolutions(t *testing.T) {
	var detailHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detailHits.Add(1)
		fmt.Fprint(w, `{"data":{"note":{"high_rating_count":7}}}`)
	}))
	defer srv.Close()

	f := newFetcherFor(srv.URL)
	url := srv.URL + "/alice/n/n1"
	if got := f.LikeRating(context.Background(), url); got != 7 {
		t.Fatalf("first LikeRating = %d, want 7", got)
	}
	if got := f.LikeRating(context.Background(), url); got != 7 {
		t.Fatalf("second LikeRating = %d, want 7", got)
	}
	if detailHits.Load() != 1 {
		t.Errorf("detail API hit %d times, want 1 (second call cached)", detailHits.Load())
	}
}

func TestNoteKey(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://note.example/alice/n/n123", "n123"},
		{"https://note.example/alice/n/n123/", "n123"},
		{"https://note.example/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := noteKey(tt.url); got != tt.want {
			t.Errorf("noteKey(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
