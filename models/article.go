package models

// Article is the canonical record produced by every harvester. Both the API
// path and the DOM path normalize into this shape; the rating enricher never
// mutates an Article in place, it returns a copy via WithLikeRating.
type Article struct {
	// Title is the article headline. Items whose title resolves to empty
	// are dropped during normalization, so Title is always non-empty here.
	Title string `json:"title"`

	// LikeCount is the lightweight approval counter ("suki"). Distinct from
	// LikeRating — the two are separate metrics on the platform.
	LikeCount int `json:"like_count"`

	// Price in yen. 0 means free.
	Price int `json:"price"`

	// URL is the absolute article URL. May be empty when unresolvable.
	URL string `json:"url"`

	// Creator is the author's display name. May be empty.
	Creator string `json:"creator"`

	// LikeRating is the stronger approval counter, resolved only by the
	// enrichment cascade. 0 when unresolved.
	LikeRating int `json:"like_rating"`
}

// WithLikeRating returns a copy of the article with the rating set.
func (a Article) WithLikeRating(n int) Article {
	a.LikeRating = n
	return a
}
