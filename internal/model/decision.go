package model

// RejectReason names the first rule a listing failed.
type RejectReason string

const (
	ReasonNone             RejectReason = ""
	ReasonStale            RejectReason = "STALE"
	ReasonLocationMismatch RejectReason = "LOCATION_MISMATCH"
	ReasonCompanyMismatch  RejectReason = "COMPANY_MISMATCH"
	// ReasonDegreeMismatch is only produced by the pipeline's post-extraction
	// degree check, never by the requirement filter.
	ReasonDegreeMismatch RejectReason = "DEGREE_MISMATCH"
)

// FilterDecision is the outcome of evaluating one listing.
type FilterDecision struct {
	Accepted bool
	Reason   RejectReason
}

// Accept is the decision for a listing that passed every rule.
func Accept() FilterDecision {
	return FilterDecision{Accepted: true}
}

// Reject returns a rejecting decision with the given reason.
func Reject(reason RejectReason) FilterDecision {
	return FilterDecision{Reason: reason}
}
