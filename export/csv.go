// Package export serializes the final article list to CSV and hands it to a
// save collaborator.
package export

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/noteharvest/models"
)

// utf8BOM keeps spreadsheet applications from misreading the Japanese
// headers as Shift_JIS.
const utf8BOM = "\uFEFF"

// header is the fixed six-column header row.
var header = []string{"タイトル", "スキ数", "高評価数", "価格", "URL", "クリエイター"}

// EscapeField wraps a field in quotes, doubling embedded quote characters.
// Empty values still produce an explicitly quoted empty field.
func EscapeField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Encode renders the article list as a BOM-prefixed CSV document: one header
// row plus one row per article.
func Encode(articles []models.Article) []byte {
	var b bytes.Buffer
	b.WriteString(utf8BOM)
	writeRow(&b, header)

	for _, a := range articles {
		writeRow(&b, []string{
			a.Title,
			strconv.Itoa(a.LikeCount),
			strconv.Itoa(a.LikeRating),
			strconv.Itoa(a.Price),
			a.URL,
			a.Creator,
		})
	}
	return b.Bytes()
}

// Filename builds the timestamped output name, minute precision.
func Filename(t time.Time) string {
	return "note_articles_" + t.Format("20060102_1504") + ".csv"
}

func writeRow(b *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EscapeField(f))
	}
	b.WriteByte('\n')
}
