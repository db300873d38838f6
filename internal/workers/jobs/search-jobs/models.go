package searchjobs

import (
	"encoding/json"

	"iopps-workers/internal/models"
)

type Input struct {
	UserID  string              `json:"userId,omitempty"`
	Filters *models.FilterState `json:"filters,omitempty"`
	Index   string              `json:"index,omitempty"`
	Size    int                 `json:"size,omitempty"`
}

type Output struct {
	Jobs         []models.JobRecord `json:"jobs"`
	TotalHits    int64              `json:"totalHits"`
	MatchedCount int                `json:"matchedCount"`
	Took         int64              `json:"took"`
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}
