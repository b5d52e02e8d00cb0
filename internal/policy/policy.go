// Package policy implements the confidence-based decision policy that routes
// mapping candidates to auto-approval, manual review, or rejection.
package policy

// Decision is the outcome of classifying a confidence score.
type Decision string

const (
	AutoApprove Decision = "auto_approve"
	NeedsReview Decision = "needs_review"
	Reject      Decision = "reject"
)

// Thresholds for classification. Boundary values fall into the stricter
// band: 0.80 and 0.40 both classify as NeedsReview.
const (
	autoApproveAbove = 0.80
	rejectBelow      = 0.40
)

// Classify maps a confidence score in [0,1] to a decision. Pure function of
// the score alone; it neither reads nor writes session state. Scores outside
// [0,1] are treated as untrustworthy proposer output and reject.
func Classify(score float64) Decision {
	switch {
	case score < 0 || score > 1:
		return Reject
	case score > autoApproveAbove:
		return AutoApprove
	case score >= rejectBelow:
		return NeedsReview
	default:
		return Reject
	}
}

// strictness orders decisions from least to most restrictive.
var strictness = map[Decision]int{
	AutoApprove: 0,
	NeedsReview: 1,
	Reject:      2,
}

// Worst returns the most restrictive decision in the batch. An empty batch
// is AutoApprove (nothing to gate on).
func Worst(decisions []Decision) Decision {
	worst := AutoApprove
	for _, d := range decisions {
		if strictness[d] > strictness[worst] {
			worst = d
		}
	}
	return worst
}

// Rationale returns the human-readable explanation attached to every
// classification result.
func Rationale(d Decision, score float64) string {
	switch d {
	case AutoApprove:
		return "confidence above auto-approval threshold, no review required"
	case NeedsReview:
		return "confidence within manual review band, human approval required"
	default:
		if score < 0 || score > 1 {
			return "confidence score outside [0,1], proposal rejected"
		}
		return "confidence below rejection threshold, proposal rejected"
	}
}
