package service

import (
	"context"
	"errors"

	catalogerrors "simbook/internal/catalog/errors"
	"simbook/internal/catalog/repository"
	"simbook/pkg/config"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/model"
	"simbook/pkg/sanitizer"
)

// ResourceCatalog is the leaf read accessor for the two scarce resources:
// physical setups and human operators, both date-scoped per region.
type ResourceCatalog interface {
	Setup(ctx context.Context, id string) (*model.Setup, error)
	ActiveSetups(ctx context.Context, regionID string) ([]*model.Setup, error)
	Operator(ctx context.Context, id string) (*model.Operator, error)
	ActiveOperators(ctx context.Context, regionID string) ([]*model.Operator, error)
	AvailableOperators(ctx context.Context, regionID, date string) ([]*model.Operator, error)
	AllOperators(ctx context.Context) ([]*model.Operator, error)
}

type resourceCatalog struct {
	setups    repository.SetupRepository
	operators repository.OperatorRepository
	cfg       *config.Config
}

func NewResourceCatalog(setups repository.SetupRepository, operators repository.OperatorRepository, cfg *config.Config) ResourceCatalog {
	return &resourceCatalog{
		setups:    setups,
		operators: operators,
		cfg:       cfg,
	}
}

func (c *resourceCatalog) Setup(ctx context.Context, id string) (*model.Setup, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Setup ID cannot be empty")
	}

	setup, err := c.setups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrSetupNotFound) {
			return nil, apperrors.NotFoundWithID("Setup", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid setup ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve setup", err)
	}

	return setup, nil
}

func (c *resourceCatalog) ActiveSetups(ctx context.Context, regionID string) ([]*model.Setup, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}

	setups, err := c.setups.FindActiveByRegion(ctx, region)
	if err != nil {
		c.cfg.Log.Error("Failed to list setups", "region_id", region, "error", err)
		return nil, apperrors.Internal("Failed to retrieve setups", err)
	}

	return setups, nil
}

func (c *resourceCatalog) Operator(ctx context.Context, id string) (*model.Operator, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Operator ID cannot be empty")
	}

	operator, err := c.operators.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrOperatorNotFound) {
			return nil, apperrors.NotFoundWithID("Operator", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid operator ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve operator", err)
	}

	return operator, nil
}

func (c *resourceCatalog) ActiveOperators(ctx context.Context, regionID string) ([]*model.Operator, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}

	operators, err := c.operators.FindActiveByRegion(ctx, region)
	if err != nil {
		c.cfg.Log.Error("Failed to list operators", "region_id", region, "error", err)
		return nil, apperrors.Internal("Failed to retrieve operators", err)
	}

	return operators, nil
}

// AvailableOperators filters the active roster by declared availability
// for one date. Operators already busy on other sessions that day are NOT
// subtracted: an operator is not consumed until accepted into a specific
// session.
func (c *resourceCatalog) AvailableOperators(ctx context.Context, regionID, date string) ([]*model.Operator, error) {
	if !model.ValidDate(date) {
		return nil, apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}

	operators, err := c.ActiveOperators(ctx, regionID)
	if err != nil {
		return nil, err
	}

	available := make([]*model.Operator, 0, len(operators))
	for _, op := range operators {
		if op.IsAvailableOn(date) {
			available = append(available, op)
		}
	}

	return available, nil
}

func (c *resourceCatalog) AllOperators(ctx context.Context) ([]*model.Operator, error) {
	operators, err := c.operators.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve operators", err)
	}
	return operators, nil
}
