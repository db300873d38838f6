package filterjobs

import "iopps-workers/internal/models"

type Input struct {
	UserID string `json:"userId"`
	// Filters overrides the member's saved filters when present.
	Filters *models.FilterState `json:"filters,omitempty"`
	Jobs    []models.JobRecord  `json:"jobs"`
}

type Output struct {
	Jobs              []models.JobRecord `json:"jobs"`
	TotalCount        int                `json:"totalCount"`
	MatchedCount      int                `json:"matchedCount"`
	ActiveFilterCount int                `json:"activeFilterCount"`
	AppliedFilters    models.FilterState `json:"appliedFilters"`
}

const inputSchema = `{
	"type": "object",
	"required": ["jobs"],
	"properties": {
		"userId": {"type": "string"},
		"filters": {"type": ["object", "null"]},
		"jobs": {"type": "array", "items": {"type": "object"}}
	}
}`
