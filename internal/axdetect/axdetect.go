// Package axdetect walks a browser's accessibility tree and produces the
// ordered list of Interactables a PageMap reports (spec.md §4.7). It never
// talks to the browser directly: a Source supplies the flat AX node list
// (the same shape CDP's Accessibility.getFullAXTree returns — a flat array
// with child-id references rather than a nested tree), and Detect builds the
// walk over that.
//
// Grounded on the teacher's ([]T, []string) value+warnings return shape for
// fallible walkers (cmd/dev-console/tools_interact_elements.go's
// buildElementIndexFromResponse / extractElementList), generalized here to
// the AX walk itself rather than a JSON post-processing step.
package axdetect

import (
	"context"
	"fmt"
	"strings"

	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/sanitize"
)

// maxNameLength bounds a sanitized accessible name or option string (spec.md
// §3: "every reported option and every value is already sanitized").
const maxNameLength = 200

// Node is one flat accessibility-tree entry as reported by the browser's AX
// subsystem: a role, an accessible name, and the IDs of its children.
type Node struct {
	ID       string
	Role     string
	Name     string
	ChildIDs []string
}

// Source fetches the full AX tree for the current page. The one production
// implementation lives in browserpool, backed by the CDP
// Accessibility.getFullAXTree call; tests supply a fake slice directly.
type Source interface {
	FetchAXTree(ctx context.Context) ([]Node, error)
}

// groupRole is the container role walked through (but not reported as an
// Interactable itself) when collecting combobox/listbox option names, and
// optionRole the role whose names are collected.
const groupRole = "group"
const optionRole = "option"

type tree struct {
	byID     map[string]*Node
	children map[string][]*Node
	hasParent map[string]bool
}

func buildTree(nodes []Node) *tree {
	t := &tree{
		byID:      make(map[string]*Node, len(nodes)),
		children:  make(map[string][]*Node, len(nodes)),
		hasParent: make(map[string]bool, len(nodes)),
	}
	for i := range nodes {
		n := &nodes[i]
		t.byID[n.ID] = n
	}
	for i := range nodes {
		n := &nodes[i]
		for _, cid := range n.ChildIDs {
			if c, ok := t.byID[cid]; ok {
				t.children[n.ID] = append(t.children[n.ID], c)
				t.hasParent[cid] = true
			}
		}
	}
	return t
}

// roots returns nodes no other node claims as a child, in input order.
func (t *tree) roots(nodes []Node) []*Node {
	var out []*Node
	for i := range nodes {
		if !t.hasParent[nodes[i].ID] {
			out = append(out, &nodes[i])
		}
	}
	return out
}

// walkState threads the sequential node counter and dedup set across the
// recursive walk, mirroring spec.md §4.7's "explicit counter passed by
// reference" redesign note.
type walkState struct {
	counter int
	seen    map[string]bool // dedup key: role+"\x00"+name, named nodes only
	out     []pagemodel.Interactable
}

// Detect walks the page's accessibility tree via src and returns the ordered
// Interactables plus any warnings. Any failure reaching into the AX
// subsystem — session creation, getFullAXTree, protocol errors, timeouts —
// is caught here and turned into ([], ["AX tree detection failed ..."]),
// per spec.md §4.7's level-1 failure isolation; callers must not propagate
// the error further.
func Detect(ctx context.Context, src Source) (interactables []pagemodel.Interactable, warnings []string) {
	defer func() {
		if r := recover(); r != nil {
			interactables = nil
			warnings = []string{fmt.Sprintf("AX tree detection failed (panic): %v", r)}
		}
	}()

	nodes, err := src.FetchAXTree(ctx)
	if err != nil {
		return nil, []string{fmt.Sprintf("AX tree detection failed (%T): %v", err, err)}
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	t := buildTree(nodes)
	state := &walkState{seen: make(map[string]bool)}
	for _, root := range t.roots(nodes) {
		walk(t, root, "main", state)
	}
	return state.out, nil
}

// walk recurses the tree, inheriting region from the nearest landmark
// ancestor and numbering every visited node sequentially via state.counter,
// whether or not it ends up reported (spec.md §4.7).
func walk(t *tree, n *Node, region string, state *walkState) {
	state.counter++

	nextRegion := region
	if mapped, ok := pagemodel.LandmarkRoles[strings.ToLower(n.Role)]; ok {
		nextRegion = mapped
	}

	if pagemodel.InteractiveRoles[strings.ToLower(n.Role)] {
		reportInteractable(t, n, nextRegion, state)
	}

	for _, c := range t.children[n.ID] {
		walk(t, c, nextRegion, state)
	}
}

func reportInteractable(t *tree, n *Node, region string, state *walkState) {
	role := strings.ToLower(n.Role)
	name := sanitize.SanitizeText(strings.TrimSpace(n.Name), maxNameLength)
	tier := 2
	if name != "" {
		tier = 1
		key := role + "\x00" + name
		if state.seen[key] {
			return
		}
		state.seen[key] = true
	}

	affordance, ok := pagemodel.RoleToAffordance[role]
	if !ok {
		// Every role in pagemodel.InteractiveRoles MUST have an affordance
		// mapping; reaching here is a programming error in the role tables,
		// not a runtime condition to paper over.
		panic(fmt.Sprintf("axdetect: role %q has no affordance mapping", role))
	}

	ia := pagemodel.Interactable{
		Role:       role,
		Name:       name,
		Affordance: affordance,
		Region:     region,
		Tier:       tier,
	}

	if role == "combobox" || role == "listbox" {
		ia.Options = collectOptions(t, n)
	}

	ia.Ref = len(state.out) + 1
	state.out = append(state.out, ia)
}

// collectOptions walks n's children and descendants through group nodes to
// collect option accessible names in order (spec.md §4.7).
func collectOptions(t *tree, n *Node) []string {
	var options []string
	var visit func(*Node)
	visit = func(cur *Node) {
		for _, c := range t.children[cur.ID] {
			role := strings.ToLower(c.Role)
			switch role {
			case optionRole:
				if name := strings.TrimSpace(c.Name); name != "" {
					options = append(options, sanitize.SanitizeText(name, maxNameLength))
				}
			case groupRole:
				visit(c)
			}
		}
	}
	visit(n)
	return options
}
