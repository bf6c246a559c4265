package pagemap

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/sanitize"
)

// maxOfflineNameLength mirrors axdetect's sanitized-name bound (spec.md §3).
const maxOfflineNameLength = 200

// ctaKeywords are the call-to-action phrases that promote a plain <a> link
// to an interactable in the offline (no-browser) extraction path (spec.md
// §4.10: "links with CTA keywords").
var ctaKeywords = []string{
	"buy", "add to cart", "sign up", "subscribe", "download", "learn more",
	"get started", "continue", "submit", "checkout", "order now",
	"register", "join now", "shop now",
}

func isCTA(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	for _, kw := range ctaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// extractInteractablesFromHTML implements build_page_map_offline's rule-based
// interactable extraction: buttons, CTA links, typed inputs (excluding
// hidden), and selects with options (spec.md §4.10).
func extractInteractablesFromHTML(rawHTML string) []pagemodel.Interactable {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	var out []pagemodel.Interactable
	seen := make(map[string]bool)
	add := func(role, name string, affordance pagemodel.Affordance, options []string) {
		tier := 2
		name = sanitize.SanitizeText(strings.TrimSpace(name), maxOfflineNameLength)
		if name != "" {
			tier = 1
			key := role + "\x00" + name
			if seen[key] {
				return
			}
			seen[key] = true
		}
		out = append(out, pagemodel.Interactable{
			Ref:        len(out) + 1,
			Role:       role,
			Name:       name,
			Affordance: affordance,
			Region:     "main",
			Tier:       tier,
			Options:    options,
		})
	}

	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		add("button", s.Text(), pagemodel.AffordanceClick, nil)
	})
	doc.Find(`input[type="submit"], input[type="button"]`).Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr("value")
		add("button", val, pagemodel.AffordanceClick, nil)
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !isCTA(text) {
			return
		}
		add("link", text, pagemodel.AffordanceClick, nil)
	})
	doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(attrOr(s, "type", "text"))
		if typ == "hidden" || typ == "submit" || typ == "button" {
			return
		}
		name := attrOr(s, "name", "")
		if name == "" {
			name = attrOr(s, "placeholder", "")
		}
		role := "textbox"
		affordance := pagemodel.AffordanceType
		switch typ {
		case "checkbox":
			role, affordance = "checkbox", pagemodel.AffordanceClick
		case "radio":
			role, affordance = "radio", pagemodel.AffordanceClick
		case "search":
			role = "searchbox"
		}
		add(role, name, affordance, nil)
	})
	doc.Find("select").Each(func(_ int, s *goquery.Selection) {
		name := attrOr(s, "name", "")
		var options []string
		s.Find("option").Each(func(_ int, opt *goquery.Selection) {
			if text := strings.TrimSpace(opt.Text()); text != "" {
				options = append(options, sanitize.SanitizeText(text, maxOfflineNameLength))
			}
		})
		if len(options) == 0 {
			return
		}
		add("combobox", name, pagemodel.AffordanceSelect, options)
	})

	return out
}

func attrOr(s *goquery.Selection, attr, fallback string) string {
	if v, ok := s.Attr(attr); ok {
		return v
	}
	return fallback
}
