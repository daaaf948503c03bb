package staffing

import "simbook/pkg/model"

// Reasons a session cannot be confirmed. Confirmation policy lives here
// and nowhere else; the booking flow consults this package instead of
// re-deriving the rules.
const (
	ReasonInvalidStatus      = "INVALID_STATUS"
	ReasonNoSetupAssigned    = "NO_SETUP_ASSIGNED"
	ReasonNoOperatorAssigned = "NO_OPERATOR_ASSIGNED"
)

type Result struct {
	CanConfirm        bool     `json:"can_confirm"`
	Reasons           []string `json:"reasons"`
	MinOperators      int      `json:"min_operators"`
	AssignedOperators int      `json:"assigned_operators"`
}

// CanConfirm evaluates whether a session satisfies the confirmation
// preconditions. Pure: no clock, no store, no mutation. Only accepted
// applications count as assigned operators; pending ones do not staff a
// session.
func CanConfirm(s *model.Session) Result {
	result := Result{
		Reasons:           []string{},
		MinOperators:      s.EffectiveMinOperators(),
		AssignedOperators: len(s.AcceptedOperatorIDs),
	}

	if s.Status != model.StatusPendingConfirmation {
		result.Reasons = append(result.Reasons, ReasonInvalidStatus)
	}
	if len(s.SetupIDs) == 0 {
		result.Reasons = append(result.Reasons, ReasonNoSetupAssigned)
	}
	if result.AssignedOperators < result.MinOperators {
		result.Reasons = append(result.Reasons, ReasonNoOperatorAssigned)
	}

	result.CanConfirm = len(result.Reasons) == 0
	return result
}
