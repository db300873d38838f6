package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// JobRecord is a job posting as received from Firestore, Elasticsearch or process variables.
// Every field is optional.
type JobRecord struct {
	ID              string    `json:"id,omitempty"`
	Title           string    `json:"title,omitempty"`
	Description     string    `json:"description,omitempty"`
	SalaryRange     string    `json:"salaryRange,omitempty"`
	EmploymentType  string    `json:"employmentType,omitempty"`
	Location        string    `json:"location,omitempty"`
	RemoteFlag      bool      `json:"remoteFlag,omitempty"`
	CreatedAt       Timestamp `json:"createdAt"`
	Category        string    `json:"category,omitempty"`
	Industry        string    `json:"industry,omitempty"`
	IndigenousOwned bool      `json:"indigenousOwned,omitempty"`
	EmployerName    string    `json:"employerName,omitempty"`
	ExternalURL     string    `json:"externalUrl,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a creation instant that may be missing or malformed. Decoding never fails;
// values that cannot be resolved leave Valid false.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// At returns a resolved timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

type firestoreTimestamp struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*t = ParseTimestamp(s)
	case '{':
		var fs firestoreTimestamp
		if err := json.Unmarshal(data, &fs); err != nil {
			return nil
		}
		switch {
		case fs.Seconds != nil:
			*t = At(time.Unix(*fs.Seconds, fs.Nanoseconds).UTC())
		case fs.USeconds != nil:
			*t = At(time.Unix(*fs.USeconds, fs.UNanoseconds).UTC())
		}
	default:
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return nil
		}
		*t = At(time.UnixMilli(int64(ms)).UTC())
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// ParseTimestamp resolves an ISO-8601 string, returning an unresolved Timestamp on failure.
func ParseTimestamp(s string) Timestamp {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return At(parsed)
		}
	}
	return Timestamp{}
}
