package enrich

import (
	"testing"

	"github.com/tidwall/gjson"
)

func parsePayload(t *testing.T, raw string) gjson.Result {
	t.Helper()
	if !gjson.Valid(raw) {
		t.Fatalf("invalid payload %q", raw)
	}
	return gjson.Parse(raw)
}

func TestRatingFromScriptPayload_DepthBound(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		want   int
		wantOK bool
	}{
		{
			"top level",
			`<script type="application/json">{"rating_count":1}</script>`,
			1, true,
		},
		{
			"two levels down",
			`<script type="application/json">{"props":{"note":{"rating_count":2}}}</script>`,
			2, true,
		},
		{
			"four levels is out of reach",
			`<script type="application/json">{"a":{"b":{"c":{"rating_count":4}}}}</script>`,
			0, false,
		},
		{
			"first payload without a match does not mask the second",
			`<script type="application/json">{"unrelated":true}</script>` +
				`<script id="__NEXT_DATA__" type="application/json">{"note":{"rating_count":6}}</script>`,
			6, true,
		},
		{
			"invalid payload skipped",
			`<script type="application/json">{broken</script>`,
			0, false,
		},
		{
			"arrays not descended",
			`<script type="application/json">{"items":[{"rating_count":8}]}</script>`,
			0, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ratingFromScriptPayload("<html><body>" + tt.page + "</body></html>")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ratingFromScriptPayload = (%d, %t), want (%d, %t)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSearchShallow_SiblingOrder(t *testing.T) {
	// A candidate on the current level wins over any nested occurrence.
	doc := parsePayload(t, `{"inner":{"rating_count":9},"rating_count":3}`)
	got, ok := searchShallow(doc, maxPayloadDepth)
	if !ok || got != 3 {
		t.Errorf("searchShallow = (%d, %t), want the current level's 3", got, ok)
	}
}
