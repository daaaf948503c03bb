package model

// Operator is a field staff member who can be proposed for a session via
// the marketplace. The roster is managed externally; this core consumes it
// read-only.
type Operator struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RegionID string `json:"region_id" bson:"region_id" validate:"required,min=2,max=60"`
	Name     string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" bson:"email" validate:"required,email"`
	Active   bool   `json:"active" bson:"active"`

	// UnavailableDates is the operator's declared blackout set. When
	// AvailableDates is non-empty it acts as an explicit whitelist and
	// takes precedence over the blackout set.
	UnavailableDates []string `json:"unavailable_dates" bson:"unavailable_dates" validate:"omitempty,dive,calendar_date"`
	AvailableDates   []string `json:"available_dates" bson:"available_dates" validate:"omitempty,dive,calendar_date"`
}

// IsAvailableOn reports the operator's declared availability for a date.
// It does not consider sessions the operator is already busy with; an
// operator is not consumed until accepted into a specific session.
func (o *Operator) IsAvailableOn(date string) bool {
	if len(o.AvailableDates) > 0 {
		return containsString(o.AvailableDates, date)
	}
	return !containsString(o.UnavailableDates, date)
}

// OperatorSnapshot is the denormalized operator view held by the planning
// projection. Upserts replace it wholesale.
type OperatorSnapshot struct {
	ID               string   `json:"id"`
	RegionID         string   `json:"region_id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Active           bool     `json:"active"`
	UnavailableDates []string `json:"unavailable_dates"`
	AvailableDates   []string `json:"available_dates"`
}

func (o *Operator) Snapshot() OperatorSnapshot {
	return OperatorSnapshot{
		ID:               o.ID,
		RegionID:         o.RegionID,
		Name:             o.Name,
		Email:            o.Email,
		Active:           o.Active,
		UnavailableDates: append([]string(nil), o.UnavailableDates...),
		AvailableDates:   append([]string(nil), o.AvailableDates...),
	}
}

// IsAvailableOn mirrors Operator.IsAvailableOn for projection reads.
func (o *OperatorSnapshot) IsAvailableOn(date string) bool {
	if len(o.AvailableDates) > 0 {
		return containsString(o.AvailableDates, date)
	}
	return !containsString(o.UnavailableDates, date)
}
