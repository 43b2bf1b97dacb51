// Package extract turns untyped platform JSON into canonical Articles.
// The upstream API has no schema contract — field names, nesting depth and
// pagination envelopes vary by endpoint and drift over time — so everything
// here is a data-driven search over candidate shapes rather than a decoder
// for one fixed layout.
package extract

import "github.com/tidwall/gjson"

// listPathCandidates are the known envelope shapes of the platform's list
// endpoints, tried in order. New shapes are additions to this table, not new
// branching logic.
var listPathCandidates = []string{
	"data.notes.contents",
	"data.notes.items",
	"data.notes",
	"data.contents",
	"data.search_results",
	"data.items",
	"notes",
	"contents",
	"items",
}

// Locate finds the most plausible list of raw item records inside an
// arbitrarily nested response document. It never fails; a nil slice means
// nothing matched.
//
// Priority order, first eligible match wins:
//  1. the fixed path candidates above;
//  2. "data" itself, when it is an eligible array;
//  3. each property of "data" (document order), when "data" is an object;
//  4. each top-level property other than "data" (document order).
//
// An array is eligible only when non-empty with an object first element, so
// arrays of primitives are rejected.
func Locate(doc gjson.Result) []gjson.Result {
	if !doc.IsObject() {
		return nil
	}

	for _, path := range listPathCandidates {
		if items, ok := eligibleList(doc.Get(path)); ok {
			return items
		}
	}

	data := doc.Get("data")
	if items, ok := eligibleList(data); ok {
		return items
	}

	if data.IsObject() {
		var found []gjson.Result
		data.ForEach(func(_, value gjson.Result) bool {
			if items, ok := eligibleList(value); ok {
				found = items
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	var found []gjson.Result
	doc.ForEach(func(key, value gjson.Result) bool {
		if key.Str == "data" {
			return true
		}
		if items, ok := eligibleList(value); ok {
			found = items
			return false
		}
		return true
	})
	return found
}

// eligibleList reports whether v is a non-empty array whose first element is
// an object, returning the elements when it is.
func eligibleList(v gjson.Result) ([]gjson.Result, bool) {
	if !v.IsArray() {
		return nil, false
	}
	items := v.Array()
	if len(items) == 0 || !items[0].IsObject() {
		return nil, false
	}
	return items, true
}
