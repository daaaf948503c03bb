package model

// Setup is a bookable physical simulator rig, scoped to a region.
// Inventory records are immutable here; creation and deactivation happen
// in an external admin workflow.
type Setup struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RegionID string `json:"region_id" bson:"region_id" validate:"required,min=2,max=60"`
	Name     string `json:"name" bson:"name" validate:"omitempty,max=100"`
	Active   bool   `json:"active" bson:"active"`
}
