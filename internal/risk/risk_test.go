package risk

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"simbook/internal/projection"
	mongotx "simbook/pkg/db/mongo"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

type mockSessionRepository struct {
	findConfirmedFunc func(ctx context.Context) ([]*model.Session, error)
}

func (m *mockSessionRepository) Create(ctx context.Context, s *model.Session) error { return nil }

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepository) FindAll(ctx context.Context) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindByRegionAndDate(ctx context.Context, regionID, date string) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindOpenByRegion(ctx context.Context, regionID string) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindConfirmed(ctx context.Context) ([]*model.Session, error) {
	if m.findConfirmedFunc != nil {
		return m.findConfirmedFunc(ctx)
	}
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) Update(ctx context.Context, id string, patch *model.SessionUpdate) (*mongo.UpdateResult, error) {
	return nil, nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepository) AddAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return nil
}

func (m *mockSessionRepository) RemoveAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return nil
}

func (m *mockSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.JSON, Service: "test"})
}

func newEngine(sessions []*model.Session, state *projection.Projection) *Engine {
	repo := &mockSessionRepository{
		findConfirmedFunc: func(ctx context.Context) ([]*model.Session, error) {
			return sessions, nil
		},
	}
	if state == nil {
		state = projection.New(nil, nil, nil, testLogger())
	}
	engine := NewEngine(repo, state, testLogger())
	// Monday morning; sessions in the fixtures are dated relative to this.
	engine.now = func() time.Time {
		return time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	}
	return engine
}

func confirmedSession(id, date string, minOperators int, accepted ...string) *model.Session {
	if accepted == nil {
		accepted = []string{}
	}
	return &model.Session{
		ID:                  id,
		ClientID:            "client-1",
		RegionID:            "east",
		Date:                date,
		Status:              model.StatusConfirmed,
		SetupIDs:            []string{"setup-" + id},
		MinOperators:        minOperators,
		AcceptedOperatorIDs: accepted,
		MarketplaceVisible:  true,
	}
}

func TestSessionRisks_SkipsStaffedAndSetupless(t *testing.T) {
	staffed := confirmedSession("s-staffed", "2026-03-10", 1, "op-1")
	noSetup := confirmedSession("s-nosetup", "2026-03-10", 1)
	noSetup.SetupIDs = nil
	atRisk := confirmedSession("s-gap", "2026-03-10", 1)

	risks, err := newEngine([]*model.Session{staffed, noSetup, atRisk}, nil).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(risks) != 1 {
		t.Fatalf("expected 1 risk, got %d", len(risks))
	}
	if risks[0].SessionID != "s-gap" {
		t.Errorf("expected s-gap flagged, got %s", risks[0].SessionID)
	}
	if risks[0].Gap != 1 {
		t.Errorf("expected gap 1, got %d", risks[0].Gap)
	}
}

func TestSessionRisks_CriticalWithin48Hours(t *testing.T) {
	// 2026-03-02 midnight is 14 hours from the fixed clock.
	session := confirmedSession("s1", "2026-03-02", 1)

	risks, err := newEngine([]*model.Session{session}, nil).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(risks) != 1 {
		t.Fatalf("expected 1 risk, got %d", len(risks))
	}
	risk := risks[0]
	if risk.Level != LevelCritical {
		t.Errorf("expected CRITICAL, got %s", risk.Level)
	}
	if risk.DaysUntil != 1 {
		t.Errorf("expected 1 day until session, got %d", risk.DaysUntil)
	}
	// 80 base + 15 gap + 40 no candidates + 15 tomorrow, clamped.
	if risk.FallbackProbability != 100 {
		t.Errorf("expected probability clamped to 100, got %d", risk.FallbackProbability)
	}
}

func TestSessionRisks_HighWhenUrgentAndUnderHalfStaffed(t *testing.T) {
	// 3 days out, 0 of 2 operators.
	session := confirmedSession("s1", "2026-03-04", 2)

	risks, err := newEngine([]*model.Session{session}, nil).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	risk := risks[0]
	if risk.Level != LevelHigh {
		t.Errorf("expected HIGH, got %s", risk.Level)
	}
	if risk.StaffingPercent != 0 {
		t.Errorf("expected 0%% staffing, got %.1f", risk.StaffingPercent)
	}
}

func TestSessionRisks_MediumWhenUrgentButHalfStaffed(t *testing.T) {
	// 3 days out, 1 of 2 operators: 50% staffing is not under half.
	session := confirmedSession("s1", "2026-03-04", 2, "op-1")

	risks, err := newEngine([]*model.Session{session}, nil).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if risks[0].Level != LevelMedium {
		t.Errorf("expected MEDIUM, got %s", risks[0].Level)
	}
}

func TestSessionRisks_MediumOnSingleCandidate(t *testing.T) {
	// Far out, but only one operator in the whole pool could fill the gap.
	session := confirmedSession("s1", "2026-03-20", 1)

	state := projection.New(nil, nil, nil, testLogger())
	state.ApplySessionUpsert(session)
	state.ApplyOperatorUpsert(&model.Operator{ID: "op-1", RegionID: "east", Active: true})

	risks, err := newEngine([]*model.Session{session}, state).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	risk := risks[0]
	if risk.Level != LevelMedium {
		t.Errorf("expected MEDIUM, got %s", risk.Level)
	}
	if risk.AvailableCandidates != 1 {
		t.Errorf("expected 1 candidate, got %d", risk.AvailableCandidates)
	}
	// 20 base + 15 gap + 20 single candidate, no urgency bump.
	if risk.FallbackProbability != 55 {
		t.Errorf("expected probability 55, got %d", risk.FallbackProbability)
	}
}

func TestSessionRisks_LowWhenFarOutWithCandidates(t *testing.T) {
	session := confirmedSession("s1", "2026-03-20", 1)

	state := projection.New(nil, nil, nil, testLogger())
	state.ApplySessionUpsert(session)
	state.ApplyOperatorUpsert(&model.Operator{ID: "op-1", RegionID: "east", Active: true})
	state.ApplyOperatorUpsert(&model.Operator{ID: "op-2", RegionID: "east", Active: true})
	state.ApplyOperatorUpsert(&model.Operator{ID: "op-3", RegionID: "east", Active: true})

	risks, err := newEngine([]*model.Session{session}, state).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if risks[0].Level != LevelLow {
		t.Errorf("expected LOW, got %s", risks[0].Level)
	}
	// 0 base + 15 gap, candidates cover the gap, no urgency.
	if risks[0].FallbackProbability != 15 {
		t.Errorf("expected probability 15, got %d", risks[0].FallbackProbability)
	}
}

func TestSessionRisks_OrderedByProbability(t *testing.T) {
	imminent := confirmedSession("s-imminent", "2026-03-02", 1)
	distant := confirmedSession("s-distant", "2026-03-25", 1)

	risks, err := newEngine([]*model.Session{distant, imminent}, nil).SessionRisks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(risks) != 2 {
		t.Fatalf("expected 2 risks, got %d", len(risks))
	}
	if risks[0].SessionID != "s-imminent" {
		t.Errorf("expected the imminent session first, got %s", risks[0].SessionID)
	}
}

// Moving a session closer to today must never make its assessment milder.
func TestSessionRisks_UrgencyMonotonicity(t *testing.T) {
	rank := map[string]int{
		LevelLow:      0,
		LevelMedium:   1,
		LevelHigh:     2,
		LevelCritical: 3,
	}

	dates := []string{
		"2026-03-25", "2026-03-10", "2026-03-06", "2026-03-05",
		"2026-03-04", "2026-03-03", "2026-03-02",
	}

	previousRank := -1
	previousProbability := -1
	for _, date := range dates {
		session := confirmedSession("s1", date, 2)

		risks, err := newEngine([]*model.Session{session}, nil).SessionRisks(context.Background())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", date, err)
		}
		risk := risks[0]

		if rank[risk.Level] < previousRank {
			t.Errorf("level dropped to %s at %s", risk.Level, date)
		}
		if risk.FallbackProbability < previousProbability {
			t.Errorf("probability dropped to %d at %s", risk.FallbackProbability, date)
		}
		previousRank = rank[risk.Level]
		previousProbability = risk.FallbackProbability
	}
}

func TestGetOperatorOverload_FlagsFiveSameDaySessions(t *testing.T) {
	sessions := make([]*model.Session, 0, 5)
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		sessions = append(sessions, confirmedSession(id, "2026-03-09", 1, "op-busy"))
	}

	overloads, err := newEngine(sessions, nil).GetOperatorOverload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(overloads) != 1 {
		t.Fatalf("expected 1 overload, got %d", len(overloads))
	}
	overload := overloads[0]
	if overload.OperatorID != "op-busy" || overload.Date != "2026-03-09" {
		t.Errorf("unexpected overload target: %+v", overload)
	}
	if overload.SessionCount != 5 {
		t.Errorf("expected 5 sessions, got %d", overload.SessionCount)
	}
	if overload.Level != LevelMedium {
		t.Errorf("expected MEDIUM at 5 sessions, got %s", overload.Level)
	}
}

func TestGetOperatorOverload_Escalation(t *testing.T) {
	buildDay := func(operatorID string, count int) []*model.Session {
		sessions := make([]*model.Session, 0, count)
		for i := 0; i < count; i++ {
			id := operatorID + string(rune('a'+i))
			sessions = append(sessions, confirmedSession(id, "2026-03-09", 1, operatorID))
		}
		return sessions
	}

	var sessions []*model.Session
	sessions = append(sessions, buildDay("op-six", 6)...)
	sessions = append(sessions, buildDay("op-seven", 7)...)
	sessions = append(sessions, buildDay("op-four", 4)...)

	overloads, err := newEngine(sessions, nil).GetOperatorOverload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(overloads) != 2 {
		t.Fatalf("expected 2 overloads, got %d", len(overloads))
	}
	// Sorted by count, heaviest first.
	if overloads[0].OperatorID != "op-seven" || overloads[0].Level != LevelCritical {
		t.Errorf("expected op-seven CRITICAL, got %s %s", overloads[0].OperatorID, overloads[0].Level)
	}
	if overloads[1].OperatorID != "op-six" || overloads[1].Level != LevelHigh {
		t.Errorf("expected op-six HIGH, got %s %s", overloads[1].OperatorID, overloads[1].Level)
	}
}

func TestGetOperatorOverload_SplitAcrossDaysIsFine(t *testing.T) {
	sessions := []*model.Session{
		confirmedSession("s1", "2026-03-09", 1, "op-1"),
		confirmedSession("s2", "2026-03-09", 1, "op-1"),
		confirmedSession("s3", "2026-03-09", 1, "op-1"),
		confirmedSession("s4", "2026-03-10", 1, "op-1"),
		confirmedSession("s5", "2026-03-10", 1, "op-1"),
	}

	overloads, err := newEngine(sessions, nil).GetOperatorOverload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(overloads) != 0 {
		t.Errorf("expected no overloads across split days, got %d", len(overloads))
	}
}
