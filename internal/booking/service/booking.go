package service

import (
	"context"
	"errors"
	"strings"
	"time"

	availability "simbook/internal/availability/service"
	bookingerrors "simbook/internal/booking/errors"
	"simbook/internal/booking/repository"
	"simbook/internal/booking/validator"
	"simbook/internal/feed"
	"simbook/internal/staffing"
	"simbook/pkg/config"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/model"
	"simbook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// CreateBookingRequest carries the client-facing booking command.
type CreateBookingRequest struct {
	ClientID     string   `json:"client_id"`
	RegionID     string   `json:"region_id"`
	Date         string   `json:"date"`
	ModuleIDs    []string `json:"module_ids"`
	Participants int      `json:"participants"`
}

type BookingService interface {
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*model.Session, error)
	ConfirmBooking(ctx context.Context, sessionID string) (*model.Session, error)
	CancelPendingBooking(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
}

type bookingService struct {
	sessions     repository.SessionRepository
	locks        repository.BookingLockRepository
	availability availability.AvailabilityEngine
	validator    *validator.SessionValidator
	publisher    feed.Publisher
	cfg          *config.Config
}

func NewBookingService(
	sessions repository.SessionRepository,
	locks repository.BookingLockRepository,
	availabilityEngine availability.AvailabilityEngine,
	sessionValidator *validator.SessionValidator,
	publisher feed.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		sessions:     sessions,
		locks:        locks,
		availability: availabilityEngine,
		validator:    sessionValidator,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// CreateBooking opens a session in pending_confirmation. No setup is held
// yet; allocation happens at confirmation. When the date cannot host the
// session the typed error carries up to the configured number of suggested
// alternative dates.
func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*model.Session, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	session := &model.Session{
		ClientID:           sanitizer.SanitizeName(req.ClientID),
		RegionID:           sanitizer.SanitizeRegion(req.RegionID),
		Date:               req.Date,
		Status:             model.StatusPendingConfirmation,
		ModuleIDs:          sanitizer.SanitizeSlice(req.ModuleIDs, strings.TrimSpace),
		Participants:       req.Participants,
		SetupIDs:           []string{},
		MarketplaceVisible: true,
	}

	if err := s.validator.ValidateSession(session); err != nil {
		return nil, err
	}

	if err := s.checkModuleCapacity(session); err != nil {
		return nil, err
	}

	ok, err := s.availability.IsDateAvailable(ctx, session.Date, session.RegionID, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.noAvailability(ctx, session.RegionID, session.Date)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.cfg.Log.Error("Failed to create session", "region_id", session.RegionID, "date", session.Date, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	if err := s.publisher.SessionChanged(ctx, feed.EventInsert, session); err != nil {
		s.cfg.Log.Warn("Change event not published", "session_id", session.ID, "error", err)
	}

	s.cfg.Log.Info("Booking created",
		"session_id", session.ID,
		"region_id", session.RegionID,
		"date", session.Date,
		"participants", session.Participants,
	)
	return session, nil
}

// ConfirmBooking transitions pending_confirmation to confirmed. Staffing
// is a hard precondition and availability is re-derived inline; the whole
// transition runs under an advisory lock plus a transaction so the setup
// assignment and the status flip commit as a unit.
func (s *bookingService) ConfirmBooking(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != model.StatusPendingConfirmation {
		return nil, apperrors.InvalidStatus("Only pending sessions can be confirmed", map[string]any{
			"session_id": session.ID,
			"status":     session.Status,
		})
	}

	lockKey := repository.LockKey(session.RegionID, session.Date)
	if err := s.locks.Acquire(ctx, lockKey, s.cfg.BookingLockTTL); err != nil {
		if errors.Is(err, bookingerrors.ErrLockHeld) {
			return nil, apperrors.Conflict("Another confirmation is in progress for this region and date")
		}
		return nil, apperrors.Internal("Failed to acquire booking lock", err)
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lockKey); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_key", lockKey, "error", releaseErr)
		}
	}()

	// Availability may have changed since request time; never trust a
	// value computed before this call.
	free, err := s.availability.FreeSetups(ctx, session.Date, session.RegionID)
	if err != nil {
		return nil, err
	}

	// Staffing is checked first, against the session as it would look with
	// the lowest free setup staged onto it. A missing setup alone is a
	// capacity problem, not a staffing one.
	staged := *session
	staged.SetupIDs = append([]string{}, session.SetupIDs...)
	if len(free) > 0 {
		staged.SetupIDs = append(staged.SetupIDs, free[0].ID)
	}

	if result := staffing.CanConfirm(&staged); !result.CanConfirm {
		if len(result.Reasons) == 1 && result.Reasons[0] == staffing.ReasonNoSetupAssigned {
			return nil, apperrors.NoSetupAvailable("No setup is free for this date; retry after capacity changes")
		}
		return nil, apperrors.StaffingInvalid("Session does not meet staffing requirements", result.Reasons)
	}

	if len(free) == 0 {
		return nil, apperrors.NoSetupAvailable("No setup is free for this date; retry after capacity changes")
	}

	confirmedAt := time.Now().UTC().Truncate(time.Millisecond)
	patch := &model.SessionUpdate{
		Status:      model.StatusConfirmed,
		SetupIDs:    &staged.SetupIDs,
		ConfirmedAt: &confirmedAt,
	}

	err = s.sessions.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.sessions.Update(sessCtx, session.ID, patch); err != nil {
			return apperrors.Internal("Failed to confirm booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to confirm booking", "session_id", session.ID, "error", err)
		return nil, err
	}

	session.Status = model.StatusConfirmed
	session.SetupIDs = staged.SetupIDs
	session.ConfirmedAt = &confirmedAt

	if err := s.publisher.SessionChanged(ctx, feed.EventUpdate, session); err != nil {
		s.cfg.Log.Warn("Change event not published", "session_id", session.ID, "error", err)
	}

	s.cfg.Log.Info("Booking confirmed",
		"session_id", session.ID,
		"setup_id", free[0].ID,
		"region_id", session.RegionID,
		"date", session.Date,
	)
	return session, nil
}

// CancelPendingBooking removes a session that never got confirmed.
// Confirmed sessions are not deletable through this path.
func (s *bookingService) CancelPendingBooking(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status != model.StatusPendingConfirmation {
		return apperrors.InvalidStatus("Only pending sessions can be cancelled", map[string]any{
			"session_id": session.ID,
			"status":     session.Status,
		})
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, bookingerrors.ErrSessionNotFound) {
			return apperrors.NotFoundWithID("Session", sessionID)
		}
		return apperrors.Internal("Failed to cancel booking", err)
	}

	if err := s.publisher.SessionDeleted(ctx, session.ID, session.Date); err != nil {
		s.cfg.Log.Warn("Change event not published", "session_id", session.ID, "error", err)
	}

	s.cfg.Log.Info("Pending booking cancelled", "session_id", session.ID, "date", session.Date)
	return nil
}

func (s *bookingService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, bookingerrors.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Session", sessionID)
		}
		if errors.Is(err, bookingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid session ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}
	return session, nil
}

// checkModuleCapacity enforces the per-module participant ceiling. A
// booking with no modules is sized as a single module.
func (s *bookingService) checkModuleCapacity(session *model.Session) error {
	moduleCount := len(session.ModuleIDs)
	if moduleCount == 0 {
		moduleCount = 1
	}

	maxParticipants := s.cfg.MaxParticipantsPerModule * moduleCount
	if session.Participants > maxParticipants {
		return apperrors.CapacityExceeded("Requested participants exceed module capacity", map[string]any{
			"participants":     session.Participants,
			"max_participants": maxParticipants,
			"module_count":     moduleCount,
		})
	}
	return nil
}

func (s *bookingService) noAvailability(ctx context.Context, regionID, date string) error {
	suggested, err := s.availability.NextAvailableDates(ctx, regionID, s.cfg.SuggestedDatesCount)
	if err != nil {
		s.cfg.Log.Warn("Failed to compute suggested dates", "region_id", regionID, "error", err)
		suggested = []string{}
	}

	return apperrors.NoAvailability("No capacity on the requested date", map[string]any{
		"date":            date,
		"region_id":       regionID,
		"suggested_dates": suggested,
	})
}
