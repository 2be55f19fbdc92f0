package flow

import (
	"strings"

	"github.com/chalique/botflow/pkg/models"
	"github.com/chalique/botflow/pkg/similarity"
)

// routeThreshold is the minimum similarity score for fuzzy edge routing.
// Authored flows are tuned against this exact cutoff.
const routeThreshold = 0.70

// findNextNode selects the outgoing edge to follow from a node, given the
// user's input. Priority order, scanning edges in definition order:
//
//  1. The first edge with an empty condition wins immediately (the
//     unconditional default edge).
//  2. The first edge whose condition equals the input after lowercasing
//     and trimming both sides.
//  3. The edge with the highest similarity score to the input, provided
//     the best score reaches the threshold. Ties keep the earliest edge.
//
// Returns the target node id, or "" when no edge qualifies — the caller
// treats that as "stay and clarify".
func findNextNode(flow *models.Flow, nodeID, input string) string {
	edges := flow.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	var bestMatch *models.Edge

	bestScore := 0.0

	for i, edge := range edges {
		if edge.Condition == "" {
			return edge.Target
		}

		condition := strings.ToLower(strings.TrimSpace(edge.Condition))
		if normalized == condition {
			return edge.Target
		}

		if score := similarity.Score(normalized, condition); score > bestScore {
			bestScore = score
			bestMatch = &edges[i]
		}
	}

	if bestMatch != nil && bestScore >= routeThreshold {
		return bestMatch.Target
	}

	return ""
}
