package domain

// OutcomeKind classifies what the ledger decided about one inbound message
type OutcomeKind int

const (
	// OutcomeIgnored means the message was not a grant attempt at all
	// Nothing is written and nothing is said
	OutcomeIgnored OutcomeKind = iota

	// OutcomeAccepted means a grant was recorded
	OutcomeAccepted

	// OutcomeRejected means a grant attempt broke a rule
	// Nothing is written, the reason's text goes back to the channel
	OutcomeRejected
)

// RejectReason identifies which rule a rejected attempt broke
type RejectReason int

const (
	// ReasonNone is the zero value for non-rejected outcomes
	ReasonNone RejectReason = iota

	// ReasonNotSingleMention means zero or multiple users were mentioned
	ReasonNotSingleMention

	// ReasonSelfGrant means the author mentioned themselves
	ReasonSelfGrant

	// ReasonQuotaExceeded means the author already hit the daily limit
	ReasonQuotaExceeded
)

// Text returns the fixed user-facing message for the reason
// These strings are a product contract, do not edit casually
func (r RejectReason) Text() string {
	switch r {
	case ReasonNotSingleMention:
		return ":burrito: 부리또 증정은 한 명에게 해야 합니다."
	case ReasonSelfGrant:
		return ":burrito: 자신에게 부리또를 증정할 수는 없습니다."
	case ReasonQuotaExceeded:
		return ":burrito: 하루에 부리또는 총 3개만 선물할 수 있습니다."
	default:
		return ""
	}
}

// Outcome is the typed decision for one inbound message
type Outcome struct {
	Kind   OutcomeKind
	Reason RejectReason
}

// Ignored returns the ignored outcome
func Ignored() Outcome { return Outcome{Kind: OutcomeIgnored} }

// Accepted returns the accepted outcome
func Accepted() Outcome { return Outcome{Kind: OutcomeAccepted} }

// Rejected returns a rejected outcome carrying its reason
func Rejected(r RejectReason) Outcome { return Outcome{Kind: OutcomeRejected, Reason: r} }
