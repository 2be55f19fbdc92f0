package moderation

import (
	"context"
	"log/slog"
)

// Decision thresholds. Scores below the lower bound are always clean and
// scores above the upper bound are always toxic; the band in between is
// decided by the per-node sensitivity.
const (
	lowerBound = 0.3
	upperBound = 0.7
)

// DefaultSensitivity applies when a condition node does not configure one.
const DefaultSensitivity = 0.5

// Gate turns raw scorer output into a toxic / not-toxic decision.
type Gate struct {
	client Client
	logger *slog.Logger
}

// NewGate wraps a scorer client.
func NewGate(client Client, logger *slog.Logger) *Gate {
	return &Gate{
		client: client,
		logger: logger.With("module", "moderation_gate"),
	}
}

// IsToxic scores the text and applies the sensitivity-based decision rule.
// Sensitivity is clamped into [0,1]. Scorer failures are treated as not
// toxic.
func (g *Gate) IsToxic(ctx context.Context, text string, sensitivity float64) bool {
	toxic, _ := g.Check(ctx, text, sensitivity)

	return toxic
}

// Check is IsToxic with the raw score exposed, for callers that report
// flagged messages. Scorer failures return (false, 0).
func (g *Gate) Check(ctx context.Context, text string, sensitivity float64) (bool, float64) {
	score, err := g.client.Score(ctx, text)
	if err != nil {
		g.logger.WarnContext(ctx, "Toxicity scorer failed, treating as not toxic", "error", err)

		return false, 0
	}

	return Decide(score, sensitivity), score
}

// Decide applies the decision rule to a raw score.
func Decide(score, sensitivity float64) bool {
	if sensitivity < 0 {
		sensitivity = 0
	} else if sensitivity > 1 {
		sensitivity = 1
	}

	switch {
	case score < lowerBound:
		return false
	case score > upperBound:
		return true
	default:
		normalized := (score - lowerBound) / (upperBound - lowerBound)

		return normalized >= 1-sensitivity
	}
}
