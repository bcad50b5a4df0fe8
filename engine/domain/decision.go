package domain

// DecisionFor maps a confidence to a decision using the two configured
// thresholds (tLow <= tHigh, both in [0,1]):
//
//	confidence >= tHigh          -> auto_accept
//	tLow <= confidence < tHigh   -> needs_review
//	confidence < tLow            -> no_match
//
// The mapping is monotonic in confidence for fixed thresholds.
func DecisionFor(confidence, tHigh, tLow float64) Decision {
	switch {
	case confidence >= tHigh:
		return DecisionAutoAccept
	case confidence >= tLow:
		return DecisionNeedsReview
	default:
		return DecisionNoMatch
	}
}
