package offers

// transitions is the single source of truth for lifecycle legality. Anything
// not listed here is rejected with InvalidTransitionError; in particular
// ACCEPTED -> ACTIVE (un-acceptance) is disallowed, correction requires
// cancelling and issuing a new offer.
var transitions = map[OfferStatus][]OfferStatus{
	OfferStatusDraft:     {OfferStatusActive},
	OfferStatusActive:    {OfferStatusAccepted, OfferStatusCancelled},
	OfferStatusAccepted:  {OfferStatusCompleted, OfferStatusCancelled},
	OfferStatusCompleted: {},
	OfferStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to OfferStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to OfferStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}