package compress

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PaginationHints surfaces next/prev links and active-filter chips the
// pruned-context builder discovers, so an agent doesn't have to re-derive
// them from the compressed HTML (spec.md §4.9: "pagination/filter hints").
type PaginationHints struct {
	NextPageURL string
	PrevPageURL string
	ActiveFilters []string
}

var paginationRelRe = regexp.MustCompile(`(?i)^(next|prev|previous)$`)

var nextTextRe = regexp.MustCompile(`(?i)^(next|more|load more|다음|次へ)$`)
var prevTextRe = regexp.MustCompile(`(?i)^(prev|previous|back|이전|前へ)$`)

// ExtractPaginationHints scans rawHTML for rel="next"/"prev" links, link text
// matching common next/prev labels (including Korean/Japanese equivalents,
// since MCG's CJK handling implies the rest of the pipeline should too), and
// filter chips carrying aria-pressed="true" or a "selected"/"active" class.
func ExtractPaginationHints(rawHTML string) PaginationHints {
	var hints PaginationHints
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return hints
	}

	doc.Find("a[rel], link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		switch {
		case paginationRelRe.MatchString(rel) && strings.EqualFold(rel, "next"):
			hints.NextPageURL = href
		case paginationRelRe.MatchString(rel):
			hints.PrevPageURL = href
		}
	})

	if hints.NextPageURL == "" || hints.PrevPageURL == "" {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			href, _ := s.Attr("href")
			if hints.NextPageURL == "" && nextTextRe.MatchString(text) {
				hints.NextPageURL = href
			}
			if hints.PrevPageURL == "" && prevTextRe.MatchString(text) {
				hints.PrevPageURL = href
			}
		})
	}

	doc.Find(`[aria-pressed="true"], .selected, .active`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && len(text) < 60 {
			hints.ActiveFilters = append(hints.ActiveFilters, text)
		}
	})

	return hints
}
