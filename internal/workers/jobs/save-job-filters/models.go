package savejobfilters

import "iopps-workers/internal/models"

type Action string

const (
	ActionApply  Action = "apply"
	ActionClear  Action = "clear"
	ActionUpdate Action = "update"
	ActionToggle Action = "toggle"
)

type Input struct {
	UserID  string              `json:"userId"`
	Action  Action              `json:"action"`
	Filters *models.FilterState `json:"filters,omitempty"`
	// Field and Value describe a single-field edit for ActionUpdate and ActionToggle.
	Field models.FilterField `json:"field,omitempty"`
	Value interface{}        `json:"value,omitempty"`
}

type Output struct {
	Filters           models.FilterState `json:"filters"`
	ActiveFilterCount int                `json:"activeFilterCount"`
}
