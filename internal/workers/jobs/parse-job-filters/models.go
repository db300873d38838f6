package parsejobfilters

import "iopps-workers/internal/models"

type Input struct {
	RawFilters map[string]interface{} `json:"rawFilters"`
}

type Output struct {
	Filters           models.FilterState `json:"filters"`
	ActiveFilterCount int                `json:"activeFilterCount"`
}
