// Package listing builds and digests marketplace listing descriptions.
// Descriptions arrive as seller-authored HTML; the UI wants plain text
// and the image URLs, nothing else.
package listing

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Summary is the displayable digest of a listing description.
type Summary struct {
	Text      string   `json:"text"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

// maxSummaryLen keeps the digest to roughly what a listing row can show.
const maxSummaryLen = 500

// Summarize strips a seller's HTML description down to plain text and
// collects any embedded image URLs. Script and style bodies are dropped
// rather than flattened into the text.
func Summarize(html string) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Summary{}, fmt.Errorf("parsing description: %w", err)
	}

	doc.Find("script, style").Remove()

	var images []string
	seen := make(map[string]bool)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		images = append(images, src)
	})

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if len(text) > maxSummaryLen {
		cut := strings.LastIndex(text[:maxSummaryLen], " ")
		if cut <= 0 {
			cut = maxSummaryLen
		}
		text = text[:cut] + "…"
	}

	return Summary{Text: text, ImageURLs: images}, nil
}

// BuildHTML renders the standard description template for a new card
// listing. Kept deliberately simple; marketplaces sanitize descriptions
// aggressively.
func BuildHTML(title, condition string, imageURLs []string) string {
	var b strings.Builder
	b.WriteString("<div>")
	b.WriteString("<h3>" + escapeHTML(title) + "</h3>")
	if condition != "" {
		b.WriteString("<p>Condition: " + escapeHTML(condition) + "</p>")
	}
	for _, u := range imageURLs {
		b.WriteString(`<img src="` + escapeHTML(u) + `" alt="card photo"/>`)
	}
	b.WriteString("<p>Shipped with care in a protective sleeve and rigid mailer.</p>")
	b.WriteString("</div>")
	return b.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
