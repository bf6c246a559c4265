package pagemap

import (
	"fmt"
	"sort"

	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/tokenizer"
)

// bucketFor ranks an interactable's priority for budget filtering (spec.md
// §4.10 step 6: "tier-1 in main, inputs, tier-1 in pruned regions,
// table-noise, rest"). Interactable carries no back-reference to the chunk
// that contained it, so the pruned-region and table-noise tiers collapse
// into one mid tier here rather than the spec's literal five (see
// DESIGN.md); the ordering still drops least-useful elements first.
func bucketFor(ia pagemodel.Interactable) int {
	switch {
	case ia.Tier == 1 && ia.Region == "main":
		return 1
	case ia.Affordance == pagemodel.AffordanceType || ia.Affordance == pagemodel.AffordanceSelect:
		return 2
	case ia.Tier == 1:
		return 3
	default:
		return 4
	}
}

// estimateTokens approximates the wire cost of one interactable without
// marshaling JSON for every candidate on every filter pass.
func estimateTokens(ia pagemodel.Interactable) int {
	return tokenizer.Count(fmt.Sprintf("%d %s %s %s %s", ia.Ref, ia.Role, ia.Name, ia.Affordance, ia.Region))
}

// FilterInteractablesToBudget drops the lowest-priority interactables first
// until the total estimated token cost fits budget, then renumbers refs
// 1..N over the survivors (spec.md §4.10 step 6).
func FilterInteractablesToBudget(interactables []pagemodel.Interactable, budget int) ([]pagemodel.Interactable, bool) {
	if len(interactables) == 0 {
		return interactables, false
	}

	tokens := make([]int, len(interactables))
	buckets := make([]int, len(interactables))
	total := 0
	for i, ia := range interactables {
		tokens[i] = estimateTokens(ia)
		buckets[i] = bucketFor(ia)
		total += tokens[i]
	}

	if total <= budget {
		out := make([]pagemodel.Interactable, len(interactables))
		copy(out, interactables)
		for i := range out {
			out[i].Ref = i + 1
		}
		return out, false
	}

	order := make([]int, len(interactables))
	for i := range order {
		order[i] = i
	}
	// Worst bucket first; within a bucket, drop the later element first so
	// earlier-discovered (usually higher in the DOM) controls survive.
	sort.SliceStable(order, func(a, b int) bool {
		if buckets[order[a]] != buckets[order[b]] {
			return buckets[order[a]] > buckets[order[b]]
		}
		return order[a] > order[b]
	})

	removed := make(map[int]bool, len(order))
	for _, idx := range order {
		if total <= budget {
			break
		}
		removed[idx] = true
		total -= tokens[idx]
	}

	out := make([]pagemodel.Interactable, 0, len(interactables)-len(removed))
	for i, ia := range interactables {
		if removed[i] {
			continue
		}
		ia.Ref = len(out) + 1
		out = append(out, ia)
	}
	return out, true
}
