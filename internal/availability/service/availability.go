package service

import (
	"context"
	"time"

	bookingrepo "simbook/internal/booking/repository"
	catalogservice "simbook/internal/catalog/service"
	"simbook/pkg/config"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/model"
	"simbook/pkg/sanitizer"
)

// Availability is the per-day capacity picture for one region.
type Availability struct {
	Date               string `json:"date"`
	RegionID           string `json:"region_id"`
	TotalSetups        int    `json:"total_setups"`
	UsedSetups         int    `json:"used_setups"`
	FreeSetups         int    `json:"free_setups"`
	OperatorsAvailable int    `json:"operators_available"`
	AvailableSetups    int    `json:"available_setups"`
	IsAvailable        bool   `json:"is_available"`
}

// DayUtilization is one row of a capacity analysis.
type DayUtilization struct {
	Date               string  `json:"date"`
	UsedSetups         int     `json:"used_setups"`
	TotalSetups        int     `json:"total_setups"`
	OperatorsAvailable int     `json:"operators_available"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

// CapacityAnalysis aggregates utilization over a date range.
type CapacityAnalysis struct {
	RegionID             string           `json:"region_id"`
	From                 string           `json:"from"`
	To                   string           `json:"to"`
	AverageUtilization   float64          `json:"average_utilization_percent"`
	PeakDay              *DayUtilization  `json:"peak_day,omitempty"`
	SlowestDay           *DayUtilization  `json:"slowest_day,omitempty"`
	DaysWithoutOperators []string         `json:"days_without_operators"`
	DaysFullyBooked      []string         `json:"days_fully_booked"`
	Days                 []DayUtilization `json:"days"`
}

// AvailabilityEngine answers whether sessions can still be sold on a day.
// A physically free setup with no operator to run it does not count as
// sellable, hence available = min(free setups, available operators).
type AvailabilityEngine interface {
	GetAvailability(ctx context.Context, date, regionID string) (*Availability, error)
	IsDateAvailable(ctx context.Context, date, regionID string, requiredCount int) (bool, error)
	FreeSetups(ctx context.Context, date, regionID string) ([]*model.Setup, error)
	FirstAvailableDate(ctx context.Context, regionID string) (string, error)
	NextAvailableDates(ctx context.Context, regionID string, count int) ([]string, error)
	GetCapacityAnalysis(ctx context.Context, regionID, from, to string) (*CapacityAnalysis, error)
}

type availabilityEngine struct {
	catalog  catalogservice.ResourceCatalog
	sessions bookingrepo.SessionRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewAvailabilityEngine(catalog catalogservice.ResourceCatalog, sessions bookingrepo.SessionRepository, cfg *config.Config) AvailabilityEngine {
	return &availabilityEngine{
		catalog:  catalog,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (e *availabilityEngine) GetAvailability(ctx context.Context, date, regionID string) (*Availability, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}
	if !model.ValidDate(date) {
		return nil, apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}

	setups, err := e.catalog.ActiveSetups(ctx, region)
	if err != nil {
		return nil, err
	}

	usedIDs, err := e.usedSetupIDs(ctx, date, region)
	if err != nil {
		return nil, err
	}

	operators, err := e.catalog.AvailableOperators(ctx, region, date)
	if err != nil {
		return nil, err
	}

	total := len(setups)
	used := 0
	for _, s := range setups {
		if usedIDs[s.ID] {
			used++
		}
	}
	free := total - used

	available := free
	if len(operators) < available {
		available = len(operators)
	}
	if available < 0 {
		available = 0
	}

	return &Availability{
		Date:               date,
		RegionID:           region,
		TotalSetups:        total,
		UsedSetups:         used,
		FreeSetups:         free,
		OperatorsAvailable: len(operators),
		AvailableSetups:    available,
		IsAvailable:        available > 0,
	}, nil
}

func (e *availabilityEngine) IsDateAvailable(ctx context.Context, date, regionID string, requiredCount int) (bool, error) {
	if requiredCount < 1 {
		requiredCount = 1
	}

	availability, err := e.GetAvailability(ctx, date, regionID)
	if err != nil {
		return false, err
	}
	return availability.AvailableSetups >= requiredCount, nil
}

// FreeSetups lists active setups not referenced by any non-cancelled
// session on the date, in ascending ID order. Confirmation assigns the
// first entry so concurrent confirmations contend on the same setup and
// the loser sees it taken.
func (e *availabilityEngine) FreeSetups(ctx context.Context, date, regionID string) ([]*model.Setup, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}
	if !model.ValidDate(date) {
		return nil, apperrors.InvalidInput("Date must be in YYYY-MM-DD format")
	}

	setups, err := e.catalog.ActiveSetups(ctx, region)
	if err != nil {
		return nil, err
	}

	usedIDs, err := e.usedSetupIDs(ctx, date, region)
	if err != nil {
		return nil, err
	}

	free := make([]*model.Setup, 0, len(setups))
	for _, s := range setups {
		if !usedIDs[s.ID] {
			free = append(free, s)
		}
	}
	return free, nil
}

func (e *availabilityEngine) FirstAvailableDate(ctx context.Context, regionID string) (string, error) {
	dates, err := e.scanAvailableDates(ctx, regionID, 1)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return "", apperrors.NoAvailability("No available date within the scheduling horizon", nil)
	}
	return dates[0], nil
}

func (e *availabilityEngine) NextAvailableDates(ctx context.Context, regionID string, count int) ([]string, error) {
	if count < 1 {
		count = e.cfg.SuggestedDatesCount
	}
	return e.scanAvailableDates(ctx, regionID, count)
}

// scanAvailableDates walks forward day by day from tomorrow, bounded by
// the configured horizon. Linear on purpose: the horizon is small and the
// per-day computation is the single source of truth for sellability.
func (e *availabilityEngine) scanAvailableDates(ctx context.Context, regionID string, count int) ([]string, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}

	var dates []string
	day := e.now().AddDate(0, 0, 1)
	for i := 0; i < e.cfg.AvailabilityHorizonDays && len(dates) < count; i++ {
		date := day.Format(model.DateLayout)

		availability, err := e.GetAvailability(ctx, date, region)
		if err != nil {
			return nil, err
		}
		if availability.IsAvailable {
			dates = append(dates, date)
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates, nil
}

func (e *availabilityEngine) GetCapacityAnalysis(ctx context.Context, regionID, from, to string) (*CapacityAnalysis, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}
	if !model.ValidDate(from) || !model.ValidDate(to) {
		return nil, apperrors.InvalidInput("Range bounds must be in YYYY-MM-DD format")
	}

	start, _ := model.ParseDate(from)
	end, _ := model.ParseDate(to)
	if end.Before(start) {
		return nil, apperrors.InvalidInput("Range end must not precede range start")
	}
	if int(end.Sub(start).Hours()/24) > e.cfg.AvailabilityHorizonDays {
		return nil, apperrors.InvalidInput("Range exceeds the scheduling horizon")
	}

	analysis := &CapacityAnalysis{
		RegionID:             region,
		From:                 from,
		To:                   to,
		DaysWithoutOperators: []string{},
		DaysFullyBooked:      []string{},
	}

	var utilizationSum float64
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(model.DateLayout)

		availability, err := e.GetAvailability(ctx, date, region)
		if err != nil {
			return nil, err
		}

		utilization := 0.0
		if availability.TotalSetups > 0 {
			utilization = float64(availability.UsedSetups) / float64(availability.TotalSetups) * 100
		}

		row := DayUtilization{
			Date:               date,
			UsedSetups:         availability.UsedSetups,
			TotalSetups:        availability.TotalSetups,
			OperatorsAvailable: availability.OperatorsAvailable,
			UtilizationPercent: utilization,
		}
		analysis.Days = append(analysis.Days, row)
		utilizationSum += utilization

		if availability.OperatorsAvailable == 0 {
			analysis.DaysWithoutOperators = append(analysis.DaysWithoutOperators, date)
		}
		if availability.TotalSetups > 0 && availability.FreeSetups == 0 {
			analysis.DaysFullyBooked = append(analysis.DaysFullyBooked, date)
		}
		if analysis.PeakDay == nil || row.UtilizationPercent > analysis.PeakDay.UtilizationPercent {
			peak := row
			analysis.PeakDay = &peak
		}
		if analysis.SlowestDay == nil || row.UtilizationPercent < analysis.SlowestDay.UtilizationPercent {
			slowest := row
			analysis.SlowestDay = &slowest
		}
	}

	if len(analysis.Days) > 0 {
		analysis.AverageUtilization = utilizationSum / float64(len(analysis.Days))
	}
	return analysis, nil
}

// usedSetupIDs collects the distinct setup IDs held by non-cancelled
// sessions on the date. Legacy single-setup records are folded in by
// Session.Normalize at the repository boundary.
func (e *availabilityEngine) usedSetupIDs(ctx context.Context, date, regionID string) (map[string]bool, error) {
	sessions, err := e.sessions.FindByRegionAndDate(ctx, regionID, date)
	if err != nil {
		return nil, apperrors.Internal("Failed to load sessions for availability", err)
	}

	used := make(map[string]bool)
	for _, s := range sessions {
		for _, setupID := range s.SetupIDs {
			used[setupID] = true
		}
	}
	return used, nil
}
