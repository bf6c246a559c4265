package browserpool

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/retio-ai/pagemap/internal/axdetect"
)

// FetchAXTree implements axdetect.Source over the page's CDP
// Accessibility.getFullAXTree call, satisfying the "flat array of AX nodes
// with child-id references" shape axdetect.Node expects.
func (s *Session) FetchAXTree(ctx context.Context) ([]axdetect.Node, error) {
	res, err := proto.AccessibilityGetFullAXTree{}.Call(s.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browserpool: getFullAXTree failed: %w", err)
	}

	nodes := make([]axdetect.Node, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		if n.Ignored {
			continue
		}
		childIDs := make([]string, 0, len(n.ChildIds))
		for _, id := range n.ChildIds {
			childIDs = append(childIDs, string(id))
		}
		nodes = append(nodes, axdetect.Node{
			ID:       string(n.NodeID),
			Role:     axValue(n.Role),
			Name:     axValue(n.Name),
			ChildIDs: childIDs,
		})
	}
	return nodes, nil
}

// axValue extracts the string value out of a CDP AXValue, which may be nil
// for nodes without a computed role or name.
func axValue(v *proto.AccessibilityAXValue) string {
	if v == nil || v.Value == nil {
		return ""
	}
	return v.Value.String()
}
