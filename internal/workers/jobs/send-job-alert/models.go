package sendjobalert

import "iopps-workers/internal/models"

type Input struct {
	UserID string             `json:"userId"`
	Email  string             `json:"email,omitempty"`
	Phone  string             `json:"phone,omitempty"`
	Jobs   []models.JobRecord `json:"jobs"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	MatchedCount   int    `json:"matchedCount"`
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
}
