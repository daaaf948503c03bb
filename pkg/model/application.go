package model

import "time"

const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Application is an operator's request to work a specific session. At most
// one non-rejected application may exist per (session, operator) pair; a
// rejected record may be superseded by a new pending one.
type Application struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SessionID       string     `json:"session_id" bson:"session_id" validate:"required,mongodb"`
	OperatorID      string     `json:"operator_id" bson:"operator_id" validate:"required,mongodb"`
	Status          string     `json:"status" bson:"status" validate:"required,oneof=pending accepted rejected"`
	AppliedAt       time.Time  `json:"applied_at" bson:"applied_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
}

func (a *Application) IsOpen() bool {
	return a.Status != ApplicationRejected
}
