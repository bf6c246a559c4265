// compress.go ports _examples/original_source/src/pagemap/pruning/compressor.py:
// the xpath document-order sort key, attribute stripping, and the iterative
// empty-tag/wrapper-collapse/whitespace passes that turn kept chunks back
// into compact HTML.
package htmlprune

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// keepAttrs is the allowlist of attributes that survive stripping; every
// other attribute is removed, whether or not removeAttrRe names it as a
// known-noisy one (so data-* attributes such as data-price are dropped too).
var keepAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true,
	"itemprop": true, "itemscope": true, "itemtype": true,
	"role": true, "type": true, "value": true, "name": true,
	"for": true, "placeholder": true, "colspan": true, "rowspan": true,
}

var removeAttrRe = regexp.MustCompile(`^(class|id|style|on\w+|data-[\w-]+|aria-[\w-]+(?:-hidden)?|tabindex|draggable|contenteditable)$`)

// xpathSegment is one parsed /tag[N] component.
type xpathSegment struct {
	tag string
	idx int
}

// xpathSortKey parses an xpath like "/body/div[2]/p[10]" into a slice of
// (tag, index) pairs so comparisons are numeric, not lexical — compressor.py's
// _xpath_sort_key, since naive string sort puts "div[10]" before "div[2]".
func xpathSortKey(xpath string) []xpathSegment {
	parts := strings.Split(strings.Trim(xpath, "/"), "/")
	segs := make([]xpathSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		tag := p
		idx := 0
		if open := strings.IndexByte(p, '['); open >= 0 && strings.HasSuffix(p, "]") {
			tag = p[:open]
			idx, _ = strconv.Atoi(p[open+1 : len(p)-1])
		}
		segs = append(segs, xpathSegment{tag: tag, idx: idx})
	}
	return segs
}

func compareSortKeys(a, b []xpathSegment) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].tag != b[i].tag {
			if a[i].tag < b[i].tag {
				return -1
			}
			return 1
		}
		if a[i].idx != b[i].idx {
			if a[i].idx < b[i].idx {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// RemergeChunks sorts kept chunks back into document order and wraps them in
// a single html/body document, mirroring compressor.py's remerge_chunks.
func RemergeChunks(decisions []Decision) string {
	kept := make([]HtmlChunk, 0, len(decisions))
	for _, d := range decisions {
		if d.Keep {
			kept = append(kept, d.Chunk)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return compareSortKeys(xpathSortKey(kept[i].XPath), xpathSortKey(kept[j].XPath)) < 0
	})

	var b strings.Builder
	b.WriteString("<html><body>")
	for _, c := range kept {
		fmt.Fprintf(&b, "<%s>%s</%s>", c.Tag, c.HTML, c.Tag)
	}
	b.WriteString("</body></html>")
	return b.String()
}

var (
	attrRe       = regexp.MustCompile(`(\S+)="[^"]*"|(\S+)='[^']*'`)
	emptyTagRe   = regexp.MustCompile(`<(\w+)(?:\s[^>]*)?></(\w+)>`)
	wrapperDivRe = regexp.MustCompile(`<div>\s*(<(?:div|section|article)[^>]*>.*?</(?:div|section|article)>)\s*</div>`)
	spanRe       = regexp.MustCompile(`</?span[^>]*>`)
	whitespaceRe = regexp.MustCompile(`[ \t\r\n]+`)
)

// stripAttrs removes non-semantic attributes, keeping only keepAttrs.
func stripAttrs(htmlFragment string) string {
	return attrRe.ReplaceAllStringFunc(htmlFragment, func(m string) string {
		sub := attrRe.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		low := strings.ToLower(name)
		if keepAttrs[low] {
			return m
		}
		if removeAttrRe.MatchString(low) {
			return ""
		}
		// Unknown attribute: drop it too; keepAttrs is the only allowlist.
		return ""
	})
}

// CompressHTML runs the full pass sequence from compressor.py's
// compress_html: strip attrs, iteratively drop empty tags (bounded at 5
// passes, matching a fixed point the Python version also assumes converges
// quickly), collapse redundant wrapper divs, strip span wrappers, then
// normalize whitespace.
func CompressHTML(htmlDoc string) string {
	out := stripAttrs(htmlDoc)
	for i := 0; i < 5; i++ {
		// Go's regexp has no backreferences, so the open/close tag names
		// are compared here and only matching pairs are removed.
		next := emptyTagRe.ReplaceAllStringFunc(out, func(m string) string {
			if sub := emptyTagRe.FindStringSubmatch(m); sub[1] != sub[2] {
				return m
			}
			return ""
		})
		if next == out {
			break
		}
		out = next
	}
	for i := 0; i < 3; i++ {
		next := wrapperDivRe.ReplaceAllString(out, "$1")
		if next == out {
			break
		}
		out = next
	}
	out = spanRe.ReplaceAllString(out, "")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
