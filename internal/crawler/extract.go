package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extracted is the result of parsing one fetched page (spec §4.F).
type Extracted struct {
	Title    string
	Body     string
	Outlinks []string
}

// Extract parses HTML, pulling the title (first non-empty <title> or <h1>),
// body text with noise elements stripped, and absolute outlink URLs.
func Extract(baseURL, html string) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extracted{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer").Remove()
	body := strings.TrimSpace(doc.Find("body").Text())

	base, err := url.Parse(baseURL)
	if err != nil {
		return Extracted{Title: title, Body: body}, nil
	}

	var outlinks []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		normalized, err := Normalize(abs.String())
		if err != nil || seen[normalized] {
			return
		}
		seen[normalized] = true
		outlinks = append(outlinks, normalized)
	})

	return Extracted{Title: title, Body: body, Outlinks: outlinks}, nil
}
