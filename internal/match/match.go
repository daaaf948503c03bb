package match

import (
	"sort"

	"simbook/internal/projection"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/model"
)

// Scoring weights. The load term decays by loadPenalty per same-day
// session and floors at zero, so an operator with five or more sessions
// that day gets no load credit at all.
const (
	regionMatchScore = 40
	availableScore   = 30
	loadBaseScore    = 30
	loadPenalty      = 6

	// suggestedCap is the top-N hint reported to callers; the full sorted
	// candidate list is always returned.
	suggestedCap = 3
)

// Candidate is one scored operator for a session.
type Candidate struct {
	Operator    *model.OperatorSnapshot `json:"operator"`
	Score       int                     `json:"score"`
	Available   bool                    `json:"available"`
	RegionMatch bool                    `json:"region_match"`
	CurrentLoad int                     `json:"current_load"`
}

// Suggestion is the ranked staffing proposal for a session.
type Suggestion struct {
	SessionID      string       `json:"session_id"`
	Candidates     []*Candidate `json:"candidates"`
	SuggestedCount int          `json:"suggested_count"`

	// FounderFallback signals that nobody credible can staff the session
	// and a human has to intervene.
	FounderFallback bool `json:"founder_fallback"`
}

// Engine scores operators against sessions using the planning projection.
// Pure computation: no store access, no mutation.
type Engine struct {
	state *projection.Projection
}

func NewEngine(state *projection.Projection) *Engine {
	return &Engine{state: state}
}

// SuggestOperators ranks every plausible operator for the session.
// An operator qualifies as a candidate when it is available on the date,
// or when that date would be its first session (nobody available but
// nobody overloaded still yields a visible candidate).
func (e *Engine) SuggestOperators(sessionID string) (*Suggestion, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session := e.state.Session(sessionID)
	if session == nil {
		return nil, apperrors.NotFoundWithID("Session", sessionID)
	}

	suggestion := &Suggestion{
		SessionID:  sessionID,
		Candidates: []*Candidate{},
	}

	availableCount := 0
	for _, operator := range e.state.Operators() {
		if !operator.Active {
			continue
		}
		if session.HasAcceptedOperator(operator.ID) {
			continue
		}

		load := e.state.OperatorLoadOn(operator.ID, session.Date)
		available := operator.IsAvailableOn(session.Date)

		if !available && load > 0 {
			continue
		}

		candidate := &Candidate{
			Operator:    operator,
			Available:   available,
			RegionMatch: operator.RegionID == session.RegionID,
			CurrentLoad: load,
		}
		if candidate.RegionMatch {
			candidate.Score += regionMatchScore
		}
		if available {
			candidate.Score += availableScore
			availableCount++
		}
		if loadScore := loadBaseScore - loadPenalty*load; loadScore > 0 {
			candidate.Score += loadScore
		}

		suggestion.Candidates = append(suggestion.Candidates, candidate)
	}

	sort.Slice(suggestion.Candidates, func(i, j int) bool {
		a, b := suggestion.Candidates[i], suggestion.Candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Operator.ID < b.Operator.ID
	})

	suggestion.SuggestedCount = len(suggestion.Candidates)
	if suggestion.SuggestedCount > suggestedCap {
		suggestion.SuggestedCount = suggestedCap
	}
	suggestion.FounderFallback = len(suggestion.Candidates) == 0 || availableCount == 0

	return suggestion, nil
}
