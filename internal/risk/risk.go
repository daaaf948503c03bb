package risk

import (
	"context"
	"sort"
	"time"

	bookingrepo "simbook/internal/booking/repository"
	"simbook/internal/projection"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

const (
	LevelLow      = "LOW"
	LevelMedium   = "MEDIUM"
	LevelHigh     = "HIGH"
	LevelCritical = "CRITICAL"
)

const (
	criticalHoursThreshold = 48
	urgentDaysThreshold    = 5
	overloadThreshold      = 4

	millisPerDay = 86_400_000
)

// SessionRisk is the staffing risk assessment for one understaffed
// confirmed session.
type SessionRisk struct {
	SessionID           string  `json:"session_id"`
	RegionID            string  `json:"region_id"`
	Date                string  `json:"date"`
	Level               string  `json:"risk_level"`
	Gap                 int     `json:"gap"`
	StaffingPercent     float64 `json:"staffing_percent"`
	DaysUntil           int     `json:"days_until"`
	AvailableCandidates int     `json:"available_candidates"`
	FallbackProbability int     `json:"fallback_probability"`
}

// OperatorOverload flags an operator booked past the same-day ceiling.
type OperatorOverload struct {
	OperatorID   string `json:"operator_id"`
	Date         string `json:"date"`
	SessionCount int    `json:"session_count"`
	Level        string `json:"risk_level"`
}

// Engine computes proactive staffing risk over confirmed sessions.
type Engine struct {
	sessions bookingrepo.SessionRepository
	state    *projection.Projection
	log      *logger.Logger
	now      func() time.Time
}

func NewEngine(sessions bookingrepo.SessionRepository, state *projection.Projection, log *logger.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		state:    state,
		log:      log,
		now:      time.Now,
	}
}

// SessionRisks assesses every confirmed session that holds a setup and is
// still understaffed. Fully-staffed sessions produce no risk object at
// all; absence from the result means nothing to worry about.
func (e *Engine) SessionRisks(ctx context.Context) ([]*SessionRisk, error) {
	sessions, err := e.sessions.FindConfirmed(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load confirmed sessions", err)
	}

	risks := make([]*SessionRisk, 0)
	for _, s := range sessions {
		if len(s.SetupIDs) == 0 {
			continue
		}
		gap := s.StaffingGap()
		if gap == 0 {
			continue
		}

		risk, err := e.assess(s, gap)
		if err != nil {
			e.log.Warn("Skipping unassessable session", "session_id", s.ID, "error", err)
			continue
		}
		risks = append(risks, risk)
	}

	sort.Slice(risks, func(i, j int) bool {
		if risks[i].FallbackProbability != risks[j].FallbackProbability {
			return risks[i].FallbackProbability > risks[j].FallbackProbability
		}
		return risks[i].SessionID < risks[j].SessionID
	})
	return risks, nil
}

func (e *Engine) assess(s *model.Session, gap int) (*SessionRisk, error) {
	sessionMidnight, err := model.ParseDate(s.Date)
	if err != nil {
		return nil, err
	}

	now := e.now()
	daysUntil := daysBetween(now, sessionMidnight)
	hoursUntil := sessionMidnight.Sub(now).Hours()

	minOperators := s.EffectiveMinOperators()
	staffingPercent := float64(len(s.AcceptedOperatorIDs)) / float64(minOperators) * 100

	available := len(e.state.AvailableOperatorsForSession(s.ID))

	level := classify(hoursUntil, daysUntil, gap, staffingPercent, available)

	return &SessionRisk{
		SessionID:           s.ID,
		RegionID:            s.RegionID,
		Date:                s.Date,
		Level:               level,
		Gap:                 gap,
		StaffingPercent:     staffingPercent,
		DaysUntil:           daysUntil,
		AvailableCandidates: available,
		FallbackProbability: fallbackProbability(level, gap, available, daysUntil),
	}, nil
}

// classify applies the risk rules in order; the first match wins.
func classify(hoursUntil float64, daysUntil, gap int, staffingPercent float64, available int) string {
	switch {
	case hoursUntil < criticalHoursThreshold && gap > 0:
		return LevelCritical
	case daysUntil < urgentDaysThreshold && staffingPercent < 50:
		return LevelHigh
	case (available == 1 && gap > 0) || (daysUntil < urgentDaysThreshold && gap > 0):
		return LevelMedium
	default:
		return LevelLow
	}
}

// fallbackProbability estimates, on a 0 to 100 scale, how likely staffing
// this session ends up needing managerial intervention. Additive terms,
// clamped.
func fallbackProbability(level string, gap, available, daysUntil int) int {
	probability := 0
	switch level {
	case LevelCritical:
		probability = 80
	case LevelHigh:
		probability = 50
	case LevelMedium:
		probability = 20
	}

	probability += 15 * gap

	switch {
	case available == 0:
		probability += 40
	case available == 1:
		probability += 20
	case available < gap:
		probability += 10
	}

	switch {
	case daysUntil <= 0:
		probability += 20
	case daysUntil == 1:
		probability += 15
	case daysUntil < 3:
		probability += 10
	}

	if probability > 100 {
		probability = 100
	}
	if probability < 0 {
		probability = 0
	}
	return probability
}

// GetOperatorOverload buckets confirmed sessions per operator and date
// and flags any day past the same-day ceiling.
func (e *Engine) GetOperatorOverload(ctx context.Context) ([]*OperatorOverload, error) {
	sessions, err := e.sessions.FindConfirmed(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load confirmed sessions", err)
	}

	counts := make(map[string]map[string]int)
	for _, s := range sessions {
		for _, operatorID := range s.AcceptedOperatorIDs {
			if counts[operatorID] == nil {
				counts[operatorID] = make(map[string]int)
			}
			counts[operatorID][s.Date]++
		}
	}

	overloads := make([]*OperatorOverload, 0)
	for operatorID, byDate := range counts {
		for date, count := range byDate {
			if count <= overloadThreshold {
				continue
			}
			overloads = append(overloads, &OperatorOverload{
				OperatorID:   operatorID,
				Date:         date,
				SessionCount: count,
				Level:        overloadLevel(count),
			})
		}
	}

	sort.Slice(overloads, func(i, j int) bool {
		if overloads[i].SessionCount != overloads[j].SessionCount {
			return overloads[i].SessionCount > overloads[j].SessionCount
		}
		if overloads[i].OperatorID != overloads[j].OperatorID {
			return overloads[i].OperatorID < overloads[j].OperatorID
		}
		return overloads[i].Date < overloads[j].Date
	})
	return overloads, nil
}

func overloadLevel(count int) string {
	switch {
	case count > 6:
		return LevelCritical
	case count > 5:
		return LevelHigh
	case count > 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// daysBetween is the calendar-day difference between now and the session
// day, both normalized to local midnight first; the millisecond delta is
// divided out with a ceiling so partial days round up.
func daysBetween(now, sessionMidnight time.Time) int {
	nowMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	deltaMillis := sessionMidnight.Sub(nowMidnight).Milliseconds()
	days := deltaMillis / millisPerDay
	if deltaMillis%millisPerDay > 0 {
		days++
	}
	return int(days)
}
