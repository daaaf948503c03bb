package service

import (
	"context"
	"testing"
	"time"

	bookingerrors "simbook/internal/booking/errors"
	"simbook/internal/feed"
	marketplaceerrors "simbook/internal/marketplace/errors"
	"simbook/pkg/config"
	mongotx "simbook/pkg/db/mongo"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
	"simbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testSessionID  = "507f1f77bcf86cd799439022"
	testOperatorID = "507f1f77bcf86cd799439033"
)

// ────────────────────────────────────────────────
// Mock repositories for testing
// ────────────────────────────────────────────────

type mockApplicationRepository struct {
	createFunc                   func(ctx context.Context, a *model.Application) error
	findBySessionAndOperatorFunc func(ctx context.Context, sessionID, operatorID string) (*model.Application, error)
	findBySessionFunc            func(ctx context.Context, sessionID string) ([]*model.Application, error)
	updateStatusFunc             func(ctx context.Context, id, status string, respondedAt time.Time, reason string) error
	deletedRejectedPairs         []string
}

func (m *mockApplicationRepository) Create(ctx context.Context, a *model.Application) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	a.ID = "507f1f77bcf86cd799439044"
	return nil
}

func (m *mockApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	return nil, marketplaceerrors.ErrApplicationNotFound
}

func (m *mockApplicationRepository) FindBySessionAndOperator(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	if m.findBySessionAndOperatorFunc != nil {
		return m.findBySessionAndOperatorFunc(ctx, sessionID, operatorID)
	}
	return nil, marketplaceerrors.ErrApplicationNotFound
}

func (m *mockApplicationRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.Application, error) {
	if m.findBySessionFunc != nil {
		return m.findBySessionFunc(ctx, sessionID)
	}
	return []*model.Application{}, nil
}

func (m *mockApplicationRepository) FindAll(ctx context.Context) ([]*model.Application, error) {
	return []*model.Application{}, nil
}

func (m *mockApplicationRepository) UpdateStatus(ctx context.Context, id, status string, respondedAt time.Time, reason string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, respondedAt, reason)
	}
	return nil
}

func (m *mockApplicationRepository) DeleteRejectedForPair(ctx context.Context, sessionID, operatorID string) error {
	m.deletedRejectedPairs = append(m.deletedRejectedPairs, sessionID+"|"+operatorID)
	return nil
}

func (m *mockApplicationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockSessionRepository struct {
	findByIDFunc         func(ctx context.Context, id string) (*model.Session, error)
	findOpenByRegionFunc func(ctx context.Context, regionID string) ([]*model.Session, error)
	addedOperators       []string
	removedOperators     []string
}

func (m *mockSessionRepository) Create(ctx context.Context, s *model.Session) error { return nil }

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingerrors.ErrSessionNotFound
}

func (m *mockSessionRepository) FindAll(ctx context.Context) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindByRegionAndDate(ctx context.Context, regionID, date string) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindOpenByRegion(ctx context.Context, regionID string) ([]*model.Session, error) {
	if m.findOpenByRegionFunc != nil {
		return m.findOpenByRegionFunc(ctx, regionID)
	}
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) FindConfirmed(ctx context.Context) ([]*model.Session, error) {
	return []*model.Session{}, nil
}

func (m *mockSessionRepository) Update(ctx context.Context, id string, patch *model.SessionUpdate) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepository) AddAcceptedOperator(ctx context.Context, id, operatorID string) error {
	m.addedOperators = append(m.addedOperators, operatorID)
	return nil
}

func (m *mockSessionRepository) RemoveAcceptedOperator(ctx context.Context, id, operatorID string) error {
	m.removedOperators = append(m.removedOperators, operatorID)
	return nil
}

func (m *mockSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.ERROR,
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func confirmedSession() *model.Session {
	return &model.Session{
		ID:                  testSessionID,
		RegionID:            "east",
		Date:                "2026-09-10",
		Status:              model.StatusConfirmed,
		SetupIDs:            []string{"setup-1"},
		MinOperators:        2,
		MarketplaceVisible:  true,
		AcceptedOperatorIDs: []string{},
	}
}

func newService(apps *mockApplicationRepository, sessions *mockSessionRepository) MarketplaceService {
	return NewMarketplaceService(apps, sessions, feed.NopPublisher{}, testConfig())
}

// ────────────────────────────────────────────────
// Apply
// ────────────────────────────────────────────────

func TestApply_PendingSessionRejected(t *testing.T) {
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			s := confirmedSession()
			s.Status = model.StatusPendingConfirmation
			return s, nil
		},
	}

	_, err := newService(&mockApplicationRepository{}, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidStatus {
		t.Errorf("expected INVALID_STATUS, got %v", err)
	}
}

func TestApply_ConfirmedVisibleSessionSucceeds(t *testing.T) {
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return confirmedSession(), nil
		},
	}

	application, err := newService(&mockApplicationRepository{}, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if application.Status != model.ApplicationPending {
		t.Errorf("expected pending application, got %s", application.Status)
	}
	if application.SessionID != testSessionID || application.OperatorID != testOperatorID {
		t.Errorf("unexpected pair: %s/%s", application.SessionID, application.OperatorID)
	}
}

func TestApply_HiddenSession(t *testing.T) {
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			s := confirmedSession()
			s.MarketplaceVisible = false
			return s, nil
		},
	}

	_, err := newService(&mockApplicationRepository{}, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeSessionNotVisible {
		t.Errorf("expected SESSION_NOT_VISIBLE, got %v", err)
	}
}

func TestApply_OpenApplicationBlocks(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			return &model.Application{
				ID:         "a-1",
				SessionID:  sessionID,
				OperatorID: operatorID,
				Status:     model.ApplicationPending,
			}, nil
		},
	}
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return confirmedSession(), nil
		},
	}

	_, err := newService(apps, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeAlreadyApplied {
		t.Errorf("expected ALREADY_APPLIED, got %v", err)
	}
}

func TestApply_AcceptedOperatorBlocks(t *testing.T) {
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			s := confirmedSession()
			s.AcceptedOperatorIDs = []string{testOperatorID}
			return s, nil
		},
	}

	_, err := newService(&mockApplicationRepository{}, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeAlreadyAccepted {
		t.Errorf("expected ALREADY_ACCEPTED, got %v", err)
	}
}

func TestApply_ReapplicationClearsRejectedRecord(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			return &model.Application{
				ID:         "a-1",
				SessionID:  sessionID,
				OperatorID: operatorID,
				Status:     model.ApplicationRejected,
			}, nil
		},
	}
	sessions := &mockSessionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return confirmedSession(), nil
		},
	}

	application, err := newService(apps, sessions).Apply(context.Background(), testSessionID, testOperatorID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if application.Status != model.ApplicationPending {
		t.Errorf("expected fresh pending application, got %s", application.Status)
	}
	if len(apps.deletedRejectedPairs) != 1 {
		t.Errorf("expected rejected predecessor to be cleared, got %v", apps.deletedRejectedPairs)
	}
}

// ────────────────────────────────────────────────
// Accept / Reject
// ────────────────────────────────────────────────

func pendingApplication() *model.Application {
	return &model.Application{
		ID:         "507f1f77bcf86cd799439044",
		SessionID:  testSessionID,
		OperatorID: testOperatorID,
		Status:     model.ApplicationPending,
	}
}

func TestAccept_FlipsToAcceptedAndAssigns(t *testing.T) {
	var updatedStatus string
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			return pendingApplication(), nil
		},
		updateStatusFunc: func(ctx context.Context, id, status string, respondedAt time.Time, reason string) error {
			updatedStatus = status
			return nil
		},
	}
	sessions := &mockSessionRepository{}

	application, err := newService(apps, sessions).Accept(context.Background(), testSessionID, testOperatorID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updatedStatus != model.ApplicationAccepted {
		t.Errorf("expected persisted accepted status, got %q", updatedStatus)
	}
	if application.RespondedAt == nil {
		t.Error("expected respondedAt to be stamped")
	}
	if len(sessions.addedOperators) != 1 || sessions.addedOperators[0] != testOperatorID {
		t.Errorf("expected operator added to accepted set, got %v", sessions.addedOperators)
	}
}

func TestAccept_AlreadyAcceptedIsIdempotentError(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			a := pendingApplication()
			a.Status = model.ApplicationAccepted
			return a, nil
		},
	}
	sessions := &mockSessionRepository{}

	_, err := newService(apps, sessions).Accept(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeAlreadyAccepted {
		t.Fatalf("expected ALREADY_ACCEPTED, got %v", err)
	}
	if len(sessions.addedOperators) != 0 {
		t.Errorf("expected no state mutation, got %v", sessions.addedOperators)
	}
}

func TestAccept_MissingApplication(t *testing.T) {
	_, err := newService(&mockApplicationRepository{}, &mockSessionRepository{}).Accept(context.Background(), testSessionID, testOperatorID)
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeApplicationNotFound {
		t.Errorf("expected APPLICATION_NOT_FOUND, got %v", err)
	}
}

func TestReject_AcceptedOperatorIsUnassigned(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			a := pendingApplication()
			a.Status = model.ApplicationAccepted
			return a, nil
		},
	}
	sessions := &mockSessionRepository{}

	application, err := newService(apps, sessions).Reject(context.Background(), testSessionID, testOperatorID, "schedule conflict")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if application.Status != model.ApplicationRejected {
		t.Errorf("expected rejected, got %s", application.Status)
	}
	if application.RejectionReason != "schedule conflict" {
		t.Errorf("expected reason recorded, got %q", application.RejectionReason)
	}
	if len(sessions.removedOperators) != 1 || sessions.removedOperators[0] != testOperatorID {
		t.Errorf("expected operator removed from accepted set, got %v", sessions.removedOperators)
	}
}

func TestReject_PendingDoesNotTouchAcceptedSet(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			return pendingApplication(), nil
		},
	}
	sessions := &mockSessionRepository{}

	if _, err := newService(apps, sessions).Reject(context.Background(), testSessionID, testOperatorID, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.removedOperators) != 0 {
		t.Errorf("expected accepted set untouched, got %v", sessions.removedOperators)
	}
}

func TestReject_AlreadyRejected(t *testing.T) {
	apps := &mockApplicationRepository{
		findBySessionAndOperatorFunc: func(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
			a := pendingApplication()
			a.Status = model.ApplicationRejected
			return a, nil
		},
	}

	_, err := newService(apps, &mockSessionRepository{}).Reject(context.Background(), testSessionID, testOperatorID, "")
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidStatus {
		t.Errorf("expected INVALID_STATUS, got %v", err)
	}
}

// ────────────────────────────────────────────────
// ListOpenSessions
// ────────────────────────────────────────────────

func TestListOpenSessions_EnrichesCounts(t *testing.T) {
	session := confirmedSession()
	session.MaxOperators = 3
	session.AcceptedOperatorIDs = []string{"op-a"}

	sessions := &mockSessionRepository{
		findOpenByRegionFunc: func(ctx context.Context, regionID string) ([]*model.Session, error) {
			return []*model.Session{session}, nil
		},
	}
	apps := &mockApplicationRepository{
		findBySessionFunc: func(ctx context.Context, sessionID string) ([]*model.Application, error) {
			return []*model.Application{
				{Status: model.ApplicationPending},
				{Status: model.ApplicationPending},
				{Status: model.ApplicationAccepted},
				{Status: model.ApplicationRejected},
			}, nil
		},
	}

	listings, err := newService(apps, sessions).ListOpenSessions(context.Background(), "east")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.OpenPositions != 2 {
		t.Errorf("expected 2 open positions, got %d", l.OpenPositions)
	}
	if l.PendingCount != 2 || l.AcceptedCount != 1 || l.RejectedCount != 1 {
		t.Errorf("unexpected counts: %+v", l)
	}
}

func TestListOpenSessions_SkipsSessionsWithoutSetups(t *testing.T) {
	bare := confirmedSession()
	bare.SetupIDs = []string{}

	sessions := &mockSessionRepository{
		findOpenByRegionFunc: func(ctx context.Context, regionID string) ([]*model.Session, error) {
			return []*model.Session{bare}, nil
		},
	}

	listings, err := newService(&mockApplicationRepository{}, sessions).ListOpenSessions(context.Background(), "east")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected no listings, got %d", len(listings))
	}
}
