package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"go.mongodb.org/mongo-driver/mongo"

	"simbook/internal/projection"
	mongotx "simbook/pkg/db/mongo"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

type stubSessionRepository struct{}

func (stubSessionRepository) Create(ctx context.Context, s *model.Session) error { return nil }
func (stubSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (stubSessionRepository) FindAll(ctx context.Context) ([]*model.Session, error) {
	return []*model.Session{}, nil
}
func (stubSessionRepository) FindByRegionAndDate(ctx context.Context, regionID, date string) ([]*model.Session, error) {
	return []*model.Session{}, nil
}
func (stubSessionRepository) FindOpenByRegion(ctx context.Context, regionID string) ([]*model.Session, error) {
	return []*model.Session{}, nil
}
func (stubSessionRepository) FindConfirmed(ctx context.Context) ([]*model.Session, error) {
	return []*model.Session{}, nil
}
func (stubSessionRepository) Update(ctx context.Context, id string, patch *model.SessionUpdate) (*mongo.UpdateResult, error) {
	return nil, nil
}
func (stubSessionRepository) Delete(ctx context.Context, id string) error { return nil }
func (stubSessionRepository) AddAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return nil
}
func (stubSessionRepository) RemoveAcceptedOperator(ctx context.Context, id, operatorID string) error {
	return nil
}
func (stubSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type stubApplicationRepository struct{}

func (stubApplicationRepository) Create(ctx context.Context, a *model.Application) error { return nil }
func (stubApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	return nil, nil
}
func (stubApplicationRepository) FindBySessionAndOperator(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	return nil, nil
}
func (stubApplicationRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.Application, error) {
	return []*model.Application{}, nil
}
func (stubApplicationRepository) FindAll(ctx context.Context) ([]*model.Application, error) {
	return []*model.Application{}, nil
}
func (stubApplicationRepository) UpdateStatus(ctx context.Context, id, status string, respondedAt time.Time, reason string) error {
	return nil
}
func (stubApplicationRepository) DeleteRejectedForPair(ctx context.Context, sessionID, operatorID string) error {
	return nil
}
func (stubApplicationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type stubOperatorRepository struct{}

func (stubOperatorRepository) FindByID(ctx context.Context, id string) (*model.Operator, error) {
	return nil, nil
}
func (stubOperatorRepository) FindByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	return []*model.Operator{}, nil
}
func (stubOperatorRepository) FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	return []*model.Operator{}, nil
}
func (stubOperatorRepository) FindAll(ctx context.Context) ([]*model.Operator, error) {
	return []*model.Operator{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.JSON, Service: "test"})
}

func readyState(t *testing.T) *projection.Projection {
	t.Helper()

	state := projection.New(stubSessionRepository{}, stubApplicationRepository{}, stubOperatorRepository{}, testLogger())
	if err := state.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	return state
}

func newRouter(state *projection.Projection) *httprouter.Router {
	router := httprouter.New()
	NewPlanningHandler(state, nil, nil, testLogger()).RegisterRoutes(router)
	return router
}

func doGet(t *testing.T, router *httprouter.Router, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return rec, body
}

func TestGetSetupAvailability(t *testing.T) {
	state := readyState(t)
	state.ApplySessionUpsert(&model.Session{
		ID:                  "s1",
		RegionID:            "east",
		Date:                "2026-04-01",
		Status:              model.StatusConfirmed,
		SetupIDs:            []string{"setup-1"},
		AcceptedOperatorIDs: []string{},
		MarketplaceVisible:  true,
	})
	router := newRouter(state)

	rec, body := doGet(t, router, "/setups/setup-1/availability/2026-04-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["available"] != false {
		t.Errorf("expected setup-1 busy on 2026-04-01, got %v", data["available"])
	}

	// Same setup, different day.
	_, body = doGet(t, router, "/setups/setup-1/availability/2026-04-02")
	data = body["data"].(map[string]any)
	if data["available"] != true {
		t.Errorf("expected setup-1 free on 2026-04-02, got %v", data["available"])
	}
}

func TestGetSetupAvailability_InvalidDate(t *testing.T) {
	router := newRouter(readyState(t))

	rec, body := doGet(t, router, "/setups/setup-1/availability/not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["error"] != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %v", body["error"])
	}
}

func TestGetSetupAvailability_ProjectionNotReady(t *testing.T) {
	// No Rebuild; the projection is still loading.
	state := projection.New(stubSessionRepository{}, stubApplicationRepository{}, stubOperatorRepository{}, testLogger())
	router := newRouter(state)

	rec, _ := doGet(t, router, "/setups/setup-1/availability/2026-04-01")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
