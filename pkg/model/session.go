package model

import (
	"time"
)

const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
	StatusCancelled           = "cancelled"
)

// Session is a client's booked training event for one calendar day. It is
// pending one or more setups and a minimum operator count before it is
// operational.
type Session struct {
	ID           string   `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ClientID     string   `json:"client_id" bson:"client_id" validate:"required,mongodb"`
	RegionID     string   `json:"region_id" bson:"region_id" validate:"required,min=2,max=60"`
	Date         string   `json:"date" bson:"date" validate:"required,calendar_date"`
	Status       string   `json:"status" bson:"status" validate:"required,oneof=pending_confirmation confirmed cancelled"`
	ModuleIDs    []string `json:"module_ids" bson:"module_ids"`
	Participants int      `json:"participants" bson:"participants" validate:"required,min=1,max=200"`

	// SetupIDs is an ordered set; it grows only by explicit assignment.
	SetupIDs []string `json:"setup_ids" bson:"setup_ids"`

	MinOperators int `json:"min_operators" bson:"min_operators" validate:"omitempty,min=0,max=50"`
	MaxOperators int `json:"max_operators" bson:"max_operators" validate:"omitempty,min=0,max=50"`

	MarketplaceVisible bool `json:"marketplace_visible" bson:"marketplace_visible"`

	// AcceptedOperatorIDs is derived from accepted applications. It is owned
	// by application events and must never be written by a session update.
	AcceptedOperatorIDs []string `json:"accepted_operator_ids" bson:"accepted_operator_ids"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`

	// Legacy document shapes still present in the store. Normalize folds
	// them into Date/SetupIDs; nothing downstream of the repository
	// boundary reads them.
	LegacyDate    string `json:"-" bson:"scheduled_date,omitempty"`
	LegacySetupID string `json:"-" bson:"setup_id,omitempty"`
}

// Normalize folds legacy single-setup and scheduled_date document shapes
// into the canonical fields. Repositories call this on every decoded
// session; the engines never branch on legacy shape.
func (s *Session) Normalize() {
	if s.Date == "" && s.LegacyDate != "" {
		s.Date = s.LegacyDate
	}
	if s.LegacySetupID != "" && !containsString(s.SetupIDs, s.LegacySetupID) {
		s.SetupIDs = append([]string{s.LegacySetupID}, s.SetupIDs...)
	}
	s.LegacyDate = ""
	s.LegacySetupID = ""
}

// EffectiveMinOperators applies the default of one required operator when
// the requirement was never set.
func (s *Session) EffectiveMinOperators() int {
	if s.MinOperators <= 0 {
		return 1
	}
	return s.MinOperators
}

// EffectiveMaxOperators caps marketplace open positions. Falls back to the
// minimum requirement when no explicit maximum was set.
func (s *Session) EffectiveMaxOperators() int {
	if s.MaxOperators <= 0 {
		return s.EffectiveMinOperators()
	}
	return s.MaxOperators
}

func (s *Session) IsCancelled() bool {
	return s.Status == StatusCancelled
}

func (s *Session) HasAcceptedOperator(operatorID string) bool {
	return containsString(s.AcceptedOperatorIDs, operatorID)
}

// StaffingGap is the shortfall between required and currently-accepted
// operators.
func (s *Session) StaffingGap() int {
	gap := s.EffectiveMinOperators() - len(s.AcceptedOperatorIDs)
	if gap < 0 {
		return 0
	}
	return gap
}

// SessionUpdate is the patch shape accepted by the session repository.
// Only status, visibility and setup assignment are mutable this way; the
// accepted-operator list belongs to application processing.
type SessionUpdate struct {
	Status             string     `json:"status,omitempty" validate:"omitempty,oneof=pending_confirmation confirmed cancelled"`
	MarketplaceVisible *bool      `json:"marketplace_visible,omitempty"`
	SetupIDs           *[]string  `json:"setup_ids,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
