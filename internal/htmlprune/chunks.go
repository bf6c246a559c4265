// chunks.go decomposes a pruned document into atomic HtmlChunk values,
// grounded on the HtmlChunk frozen dataclass in
// _examples/original_source/src/pagemap/pruning/__init__.py.
package htmlprune

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// HtmlChunk is an atomic, independently-prunable fragment of the document.
type HtmlChunk struct {
	XPath      string
	HTML       string
	Text       string
	Tag        string
	Type       pagemodel.ChunkType
	Attrs      map[string]string
	ParentXPath string
	Depth      int
	InMain     bool
}

// chunkTags is the set of tags that start a new chunk boundary during
// decomposition; everything else is absorbed into its nearest chunk ancestor.
var chunkTags = map[string]pagemodel.ChunkType{
	"table":    pagemodel.ChunkTable,
	"ul":       pagemodel.ChunkList,
	"ol":       pagemodel.ChunkList,
	"h1":       pagemodel.ChunkHeading,
	"h2":       pagemodel.ChunkHeading,
	"h3":       pagemodel.ChunkHeading,
	"h4":       pagemodel.ChunkHeading,
	"h5":       pagemodel.ChunkHeading,
	"h6":       pagemodel.ChunkHeading,
	"img":      pagemodel.ChunkMedia,
	"video":    pagemodel.ChunkMedia,
	"picture":  pagemodel.ChunkMedia,
	"form":     pagemodel.ChunkForm,
	"meta":     pagemodel.ChunkMeta,
	"p":        pagemodel.ChunkTextBlock,
	"article":  pagemodel.ChunkTextBlock,
	"section":  pagemodel.ChunkTextBlock,
	"div":      pagemodel.ChunkTextBlock,
	"blockquote": pagemodel.ChunkTextBlock,
}

// Decompose walks doc and emits one HtmlChunk per chunk-boundary element,
// in document order, tagging each with whether an ancestor is <main>/
// role="main" (InMain), which the prune decision rules key off of.
func Decompose(doc *goquery.Document) []HtmlChunk {
	var chunks []HtmlChunk
	root := doc.Find("body")
	walkDecompose(root, "/body", 0, false, &chunks)
	return chunks
}

func walkDecompose(s *goquery.Selection, xpath string, depth int, inMain bool, out *[]HtmlChunk) {
	s.Contents().Each(func(i int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			return
		}
		tag := goquery.NodeName(child)
		childXPath := fmt.Sprintf("%s/%s[%d]", xpath, tag, i+1)
		childInMain := inMain || tag == "main"
		if role, ok := child.Attr("role"); ok && strings.EqualFold(role, "main") {
			childInMain = true
		}

		ctype, ok := chunkTags[tag]
		if tag == "script" {
			// AOMFilter only lets ld+json and plain JSON script bodies
			// survive pruning; classify which chunk type they become.
			scriptType := strings.ToLower(strings.TrimSpace(attrOrEmpty(child, "type")))
			if scriptType == "application/ld+json" {
				ctype, ok = pagemodel.ChunkMeta, true
			} else {
				ctype, ok = pagemodel.ChunkRSCData, true // Next.js-style JSON data island
			}
		}
		if ok {
			html, _ := child.Html()
			attrs := make(map[string]string)
			for _, a := range child.Nodes[0].Attr {
				attrs[a.Key] = a.Val
			}
			*out = append(*out, HtmlChunk{
				XPath:       childXPath,
				HTML:        html,
				Text:        strings.TrimSpace(child.Text()),
				Tag:         tag,
				Type:        ctype,
				Attrs:       attrs,
				ParentXPath: xpath,
				Depth:       depth,
				InMain:      childInMain,
			})
			// Tables, lists, and forms are atomic; their descendants aren't
			// independently decomposed. Media/heading/meta have no
			// meaningful children. Containers (div/section/article/p) still
			// recurse so nested real content chunks aren't swallowed whole.
			if ctype == pagemodel.ChunkTextBlock {
				walkDecompose(child, childXPath, depth+1, childInMain, out)
			}
			return
		}
		walkDecompose(child, childXPath, depth+1, childInMain, out)
	})
}
