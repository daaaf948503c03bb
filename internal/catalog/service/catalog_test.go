package service

import (
	"context"
	"testing"

	catalogerrors "simbook/internal/catalog/errors"
	"simbook/pkg/config"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repositories for testing
// ────────────────────────────────────────────────

type mockSetupRepository struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.Setup, error)
	findActiveByRegionFunc func(ctx context.Context, regionID string) ([]*model.Setup, error)
}

func (m *mockSetupRepository) FindByID(ctx context.Context, id string) (*model.Setup, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, catalogerrors.ErrSetupNotFound
}

func (m *mockSetupRepository) FindByRegion(ctx context.Context, regionID string) ([]*model.Setup, error) {
	return []*model.Setup{}, nil
}

func (m *mockSetupRepository) FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Setup, error) {
	if m.findActiveByRegionFunc != nil {
		return m.findActiveByRegionFunc(ctx, regionID)
	}
	return []*model.Setup{}, nil
}

type mockOperatorRepository struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.Operator, error)
	findActiveByRegionFunc func(ctx context.Context, regionID string) ([]*model.Operator, error)
	findAllFunc            func(ctx context.Context) ([]*model.Operator, error)
}

func (m *mockOperatorRepository) FindByID(ctx context.Context, id string) (*model.Operator, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, catalogerrors.ErrOperatorNotFound
}

func (m *mockOperatorRepository) FindByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	return []*model.Operator{}, nil
}

func (m *mockOperatorRepository) FindActiveByRegion(ctx context.Context, regionID string) ([]*model.Operator, error) {
	if m.findActiveByRegionFunc != nil {
		return m.findActiveByRegionFunc(ctx, regionID)
	}
	return []*model.Operator{}, nil
}

func (m *mockOperatorRepository) FindAll(ctx context.Context) ([]*model.Operator, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return []*model.Operator{}, nil
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

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestSetup_NotFound(t *testing.T) {
	catalog := NewResourceCatalog(&mockSetupRepository{}, &mockOperatorRepository{}, testConfig())

	_, err := catalog.Setup(context.Background(), "missing-id")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected code %s, got %s", apperrors.CodeNotFound, appErr.Code)
	}
}

func TestSetup_EmptyID(t *testing.T) {
	catalog := NewResourceCatalog(&mockSetupRepository{}, &mockOperatorRepository{}, testConfig())

	_, err := catalog.Setup(context.Background(), "")
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAvailableOperators_FiltersByDate(t *testing.T) {
	operators := []*model.Operator{
		{ID: "op-1", RegionID: "lyon", Active: true},
		{ID: "op-2", RegionID: "lyon", Active: true, UnavailableDates: []string{"2026-03-10"}},
		{ID: "op-3", RegionID: "lyon", Active: true, AvailableDates: []string{"2026-03-11"}},
	}

	catalog := NewResourceCatalog(&mockSetupRepository{}, &mockOperatorRepository{
		findActiveByRegionFunc: func(ctx context.Context, regionID string) ([]*model.Operator, error) {
			return operators, nil
		},
	}, testConfig())

	available, err := catalog.AvailableOperators(context.Background(), "lyon", "2026-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(available) != 1 {
		t.Fatalf("expected 1 available operator, got %d", len(available))
	}
	if available[0].ID != "op-1" {
		t.Errorf("expected op-1, got %s", available[0].ID)
	}
}

func TestAvailableOperators_WhitelistWins(t *testing.T) {
	catalog := NewResourceCatalog(&mockSetupRepository{}, &mockOperatorRepository{
		findActiveByRegionFunc: func(ctx context.Context, regionID string) ([]*model.Operator, error) {
			return []*model.Operator{
				{ID: "op-3", RegionID: "lyon", Active: true, AvailableDates: []string{"2026-03-11"}},
			}, nil
		},
	}, testConfig())

	available, err := catalog.AvailableOperators(context.Background(), "lyon", "2026-03-11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("expected whitelisted operator to be available, got %d", len(available))
	}
}

func TestAvailableOperators_RejectsBadDate(t *testing.T) {
	catalog := NewResourceCatalog(&mockSetupRepository{}, &mockOperatorRepository{}, testConfig())

	for _, date := range []string{"", "10/03/2026", "2026-3-1", "tomorrow"} {
		_, err := catalog.AvailableOperators(context.Background(), "lyon", date)
		if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidInput {
			t.Errorf("date %q: expected INVALID_INPUT, got %v", date, err)
		}
	}
}

func TestActiveSetups_SanitizesRegion(t *testing.T) {
	var seenRegion string
	catalog := NewResourceCatalog(&mockSetupRepository{
		findActiveByRegionFunc: func(ctx context.Context, regionID string) ([]*model.Setup, error) {
			seenRegion = regionID
			return []*model.Setup{{ID: "s-1", RegionID: regionID, Active: true}}, nil
		},
	}, &mockOperatorRepository{}, testConfig())

	_, err := catalog.ActiveSetups(context.Background(), "  Lyon ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenRegion != "lyon" {
		t.Errorf("expected sanitized region lyon, got %q", seenRegion)
	}
}
