package service

import (
	"context"
	"errors"
	"time"

	bookingerrors "simbook/internal/booking/errors"
	bookingrepo "simbook/internal/booking/repository"
	"simbook/internal/feed"
	marketplaceerrors "simbook/internal/marketplace/errors"
	"simbook/internal/marketplace/repository"
	"simbook/pkg/config"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/model"
	"simbook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// OpenSession is a marketplace listing: a confirmed visible session
// enriched with how many operator slots remain and the application tally.
type OpenSession struct {
	Session       *model.Session `json:"session"`
	OpenPositions int            `json:"open_positions"`
	PendingCount  int            `json:"pending_count"`
	AcceptedCount int            `json:"accepted_count"`
	RejectedCount int            `json:"rejected_count"`
}

// MarketplaceService runs the per-(session, operator) application state
// machine: pending to accepted or rejected, with re-application allowed
// after a rejection but never a silent supersede of an acceptance.
type MarketplaceService interface {
	Apply(ctx context.Context, sessionID, operatorID string) (*model.Application, error)
	Accept(ctx context.Context, sessionID, operatorID string) (*model.Application, error)
	Reject(ctx context.Context, sessionID, operatorID, reason string) (*model.Application, error)
	ListOpenSessions(ctx context.Context, regionID string) ([]*OpenSession, error)
	SessionApplications(ctx context.Context, sessionID string) ([]*model.Application, error)
}

type marketplaceService struct {
	applications repository.ApplicationRepository
	sessions     bookingrepo.SessionRepository
	publisher    feed.Publisher
	cfg          *config.Config
}

func NewMarketplaceService(
	applications repository.ApplicationRepository,
	sessions bookingrepo.SessionRepository,
	publisher feed.Publisher,
	cfg *config.Config,
) MarketplaceService {
	return &marketplaceService{
		applications: applications,
		sessions:     sessions,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *marketplaceService) Apply(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	if sessionID == "" || operatorID == "" {
		return nil, apperrors.InvalidInput("Session ID and operator ID are required")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != model.StatusConfirmed {
		return nil, apperrors.InvalidStatus("Applications are only open on confirmed sessions", map[string]any{
			"session_id": session.ID,
			"status":     session.Status,
		})
	}
	if !session.MarketplaceVisible {
		return nil, apperrors.SessionNotVisible(session.ID)
	}
	if session.HasAcceptedOperator(operatorID) {
		return nil, apperrors.AlreadyAccepted(sessionID, operatorID)
	}

	existing, err := s.applications.FindBySessionAndOperator(ctx, sessionID, operatorID)
	if err != nil && !errors.Is(err, marketplaceerrors.ErrApplicationNotFound) {
		return nil, apperrors.Internal("Failed to check existing applications", err)
	}
	if existing != nil && existing.IsOpen() {
		if existing.Status == model.ApplicationAccepted {
			return nil, apperrors.AlreadyAccepted(sessionID, operatorID)
		}
		return nil, apperrors.AlreadyApplied(sessionID, operatorID)
	}

	application := &model.Application{
		SessionID:  sessionID,
		OperatorID: operatorID,
		Status:     model.ApplicationPending,
	}

	err = s.applications.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.applications.DeleteRejectedForPair(sessCtx, sessionID, operatorID); err != nil {
			return apperrors.Internal("Failed to clear rejected application", err)
		}
		if err := s.applications.Create(sessCtx, application); err != nil {
			if errors.Is(err, marketplaceerrors.ErrDuplicateApplication) {
				return apperrors.AlreadyApplied(sessionID, operatorID)
			}
			return apperrors.Internal("Failed to create application", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.ApplicationChanged(ctx, feed.EventInsert, application); err != nil {
		s.cfg.Log.Warn("Change event not published", "application_id", application.ID, "error", err)
	}

	s.cfg.Log.Info("Application submitted",
		"application_id", application.ID,
		"session_id", sessionID,
		"operator_id", operatorID,
	)
	return application, nil
}

func (s *marketplaceService) Accept(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	application, err := s.loadApplication(ctx, sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	switch application.Status {
	case model.ApplicationAccepted:
		return nil, apperrors.AlreadyAccepted(sessionID, operatorID)
	case model.ApplicationRejected:
		return nil, apperrors.InvalidStatus("Only pending applications can be accepted", map[string]any{
			"session_id":  sessionID,
			"operator_id": operatorID,
			"status":      application.Status,
		})
	}

	respondedAt := time.Now().UTC().Truncate(time.Millisecond)
	err = s.applications.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.applications.UpdateStatus(sessCtx, application.ID, model.ApplicationAccepted, respondedAt, ""); err != nil {
			return apperrors.Internal("Failed to accept application", err)
		}
		// $addToSet keeps the accepted set idempotent under replays.
		if err := s.sessions.AddAcceptedOperator(sessCtx, sessionID, operatorID); err != nil {
			return apperrors.Internal("Failed to assign operator to session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	application.Status = model.ApplicationAccepted
	application.RespondedAt = &respondedAt

	if err := s.publisher.ApplicationChanged(ctx, feed.EventUpdate, application); err != nil {
		s.cfg.Log.Warn("Change event not published", "application_id", application.ID, "error", err)
	}

	s.cfg.Log.Info("Application accepted",
		"application_id", application.ID,
		"session_id", sessionID,
		"operator_id", operatorID,
	)
	return application, nil
}

func (s *marketplaceService) Reject(ctx context.Context, sessionID, operatorID, reason string) (*model.Application, error) {
	application, err := s.loadApplication(ctx, sessionID, operatorID)
	if err != nil {
		return nil, err
	}

	if application.Status == model.ApplicationRejected {
		return nil, apperrors.InvalidStatus("Application is already rejected", map[string]any{
			"session_id":  sessionID,
			"operator_id": operatorID,
		})
	}

	wasAccepted := application.Status == model.ApplicationAccepted
	respondedAt := time.Now().UTC().Truncate(time.Millisecond)

	err = s.applications.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.applications.UpdateStatus(sessCtx, application.ID, model.ApplicationRejected, respondedAt, reason); err != nil {
			return apperrors.Internal("Failed to reject application", err)
		}
		if wasAccepted {
			if err := s.sessions.RemoveAcceptedOperator(sessCtx, sessionID, operatorID); err != nil {
				return apperrors.Internal("Failed to unassign operator from session", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	application.Status = model.ApplicationRejected
	application.RespondedAt = &respondedAt
	application.RejectionReason = reason

	if err := s.publisher.ApplicationChanged(ctx, feed.EventUpdate, application); err != nil {
		s.cfg.Log.Warn("Change event not published", "application_id", application.ID, "error", err)
	}

	s.cfg.Log.Info("Application rejected",
		"application_id", application.ID,
		"session_id", sessionID,
		"operator_id", operatorID,
		"was_accepted", wasAccepted,
	)
	return application, nil
}

// ListOpenSessions returns marketplace listings for a region: confirmed,
// visible sessions holding at least one setup.
func (s *marketplaceService) ListOpenSessions(ctx context.Context, regionID string) ([]*OpenSession, error) {
	region := sanitizer.SanitizeRegion(regionID)
	if region == "" {
		return nil, apperrors.InvalidInput("Region ID cannot be empty")
	}

	sessions, err := s.sessions.FindOpenByRegion(ctx, region)
	if err != nil {
		s.cfg.Log.Error("Failed to list open sessions", "region_id", region, "error", err)
		return nil, apperrors.Internal("Failed to list open sessions", err)
	}

	listings := make([]*OpenSession, 0, len(sessions))
	for _, session := range sessions {
		if session.IsCancelled() || len(session.SetupIDs) == 0 {
			continue
		}

		applications, err := s.applications.FindBySession(ctx, session.ID)
		if err != nil {
			return nil, apperrors.Internal("Failed to load session applications", err)
		}

		listing := &OpenSession{Session: session}
		for _, a := range applications {
			switch a.Status {
			case model.ApplicationPending:
				listing.PendingCount++
			case model.ApplicationAccepted:
				listing.AcceptedCount++
			case model.ApplicationRejected:
				listing.RejectedCount++
			}
		}

		open := session.EffectiveMaxOperators() - len(session.AcceptedOperatorIDs)
		if open < 0 {
			open = 0
		}
		listing.OpenPositions = open

		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *marketplaceService) SessionApplications(ctx context.Context, sessionID string) ([]*model.Application, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	applications, err := s.applications.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load session applications", err)
	}
	return applications, nil
}

func (s *marketplaceService) loadSession(ctx context.Context, sessionID string) (*model.Session, error) {
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

func (s *marketplaceService) loadApplication(ctx context.Context, sessionID, operatorID string) (*model.Application, error) {
	if sessionID == "" || operatorID == "" {
		return nil, apperrors.InvalidInput("Session ID and operator ID are required")
	}

	application, err := s.applications.FindBySessionAndOperator(ctx, sessionID, operatorID)
	if err != nil {
		if errors.Is(err, marketplaceerrors.ErrApplicationNotFound) {
			return nil, apperrors.ApplicationNotFound(sessionID, operatorID)
		}
		return nil, apperrors.Internal("Failed to retrieve application", err)
	}
	return application, nil
}
