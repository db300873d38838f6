package models

import (
	"encoding/json"
	"fmt"
)

// RemoteWorkOption is the derived remote-work category of a job.
type RemoteWorkOption string

const (
	RemoteWorkRemote RemoteWorkOption = "remote"
	RemoteWorkHybrid RemoteWorkOption = "hybrid"
	RemoteWorkOnSite RemoteWorkOption = "on-site"
)

// JobTypeOption is the normalized employment type of a job.
type JobTypeOption string

const (
	JobTypeFullTime   JobTypeOption = "full-time"
	JobTypePartTime   JobTypeOption = "part-time"
	JobTypeContract   JobTypeOption = "contract"
	JobTypeInternship JobTypeOption = "internship"
)

// ExperienceLevelOption is the seniority inferred from a job's title and description.
type ExperienceLevelOption string

const (
	ExperienceEntry     ExperienceLevelOption = "entry"
	ExperienceMid       ExperienceLevelOption = "mid"
	ExperienceSenior    ExperienceLevelOption = "senior"
	ExperienceExecutive ExperienceLevelOption = "executive"
)

// PostedDateOption is the posting-age window.
type PostedDateOption string

const (
	PostedLast24Hours PostedDateOption = "last-24h"
	PostedLast7Days   PostedDateOption = "last-7-days"
	PostedLast30Days  PostedDateOption = "last-30-days"
	PostedAny         PostedDateOption = "any"
)

// legacyPostedDates maps the values written by the mobile client onto the canonical ones.
var legacyPostedDates = map[string]PostedDateOption{
	"24h":    PostedLast24Hours,
	"7days":  PostedLast7Days,
	"30days": PostedLast30Days,
}

// ParsePostedDateOption accepts canonical and legacy spellings. The empty string is "any".
func ParsePostedDateOption(s string) (PostedDateOption, error) {
	switch p := PostedDateOption(s); p {
	case PostedLast24Hours, PostedLast7Days, PostedLast30Days, PostedAny:
		return p, nil
	case "":
		return PostedAny, nil
	}
	if p, ok := legacyPostedDates[s]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown postedDate %q", s)
}

func (p *PostedDateOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePostedDateOption(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ThresholdHours is the maximum job age in hours for the window; ok is false for "any".
func (p PostedDateOption) ThresholdHours() (hours float64, ok bool) {
	switch p {
	case PostedLast24Hours:
		return 24, true
	case PostedLast7Days:
		return 24 * 7, true
	case PostedLast30Days:
		return 24 * 30, true
	default:
		return 0, false
	}
}

var (
	validRemoteWork = map[RemoteWorkOption]bool{
		RemoteWorkRemote: true, RemoteWorkHybrid: true, RemoteWorkOnSite: true,
	}
	validJobTypes = map[JobTypeOption]bool{
		JobTypeFullTime: true, JobTypePartTime: true, JobTypeContract: true, JobTypeInternship: true,
	}
	validExperience = map[ExperienceLevelOption]bool{
		ExperienceEntry: true, ExperienceMid: true, ExperienceSenior: true, ExperienceExecutive: true,
	}
)

func (o RemoteWorkOption) Valid() bool      { return validRemoteWork[o] }
func (o JobTypeOption) Valid() bool         { return validJobTypes[o] }
func (o ExperienceLevelOption) Valid() bool { return validExperience[o] }

// FilterState is the faceted job filter a member edits and saves.
// Empty sets and nil salary bounds mean "no constraint".
type FilterState struct {
	SalaryMin           *int                    `json:"salaryMin,omitempty"`
	SalaryMax           *int                    `json:"salaryMax,omitempty"`
	RemoteWork          []RemoteWorkOption      `json:"remoteWork"`
	JobTypes            []JobTypeOption         `json:"jobTypes"`
	ExperienceLevel     []ExperienceLevelOption `json:"experienceLevel"`
	PostedDate          PostedDateOption        `json:"postedDate"`
	IndigenousOwnedOnly bool                    `json:"indigenousOwnedOnly"`
	Industries          []string                `json:"industries"`
}

// DefaultFilterState returns a new identity filter. Each call allocates fresh slices.
func DefaultFilterState() FilterState {
	return FilterState{
		RemoteWork:      []RemoteWorkOption{},
		JobTypes:        []JobTypeOption{},
		ExperienceLevel: []ExperienceLevelOption{},
		PostedDate:      PostedAny,
		Industries:      []string{},
	}
}

// Clone deep-copies the state so callers never share slices or salary pointers.
func (f FilterState) Clone() FilterState {
	out := FilterState{
		RemoteWork:          append([]RemoteWorkOption{}, f.RemoteWork...),
		JobTypes:            append([]JobTypeOption{}, f.JobTypes...),
		ExperienceLevel:     append([]ExperienceLevelOption{}, f.ExperienceLevel...),
		PostedDate:          f.PostedDate,
		IndigenousOwnedOnly: f.IndigenousOwnedOnly,
		Industries:          append([]string{}, f.Industries...),
	}
	if f.SalaryMin != nil {
		v := *f.SalaryMin
		out.SalaryMin = &v
	}
	if f.SalaryMax != nil {
		v := *f.SalaryMax
		out.SalaryMax = &v
	}
	if out.PostedDate == "" {
		out.PostedDate = PostedAny
	}
	return out
}

// Validate reports the first enum value outside its facet or an inverted salary range.
func (f FilterState) Validate() error {
	for _, v := range f.RemoteWork {
		if !v.Valid() {
			return fmt.Errorf("unknown remoteWork %q", v)
		}
	}
	for _, v := range f.JobTypes {
		if !v.Valid() {
			return fmt.Errorf("unknown jobTypes %q", v)
		}
	}
	for _, v := range f.ExperienceLevel {
		if !v.Valid() {
			return fmt.Errorf("unknown experienceLevel %q", v)
		}
	}
	if _, err := ParsePostedDateOption(string(f.PostedDate)); err != nil {
		return err
	}
	if f.SalaryMin != nil && *f.SalaryMin < 0 {
		return fmt.Errorf("salaryMin must not be negative")
	}
	if f.SalaryMax != nil && *f.SalaryMax < 0 {
		return fmt.Errorf("salaryMax must not be negative")
	}
	if f.SalaryMin != nil && f.SalaryMax != nil && *f.SalaryMin > *f.SalaryMax {
		return fmt.Errorf("salaryMin (%d) > salaryMax (%d)", *f.SalaryMin, *f.SalaryMax)
	}
	return nil
}

// FilterField names one field of FilterState for single-field edits.
type FilterField string

const (
	FieldSalaryMin           FilterField = "salaryMin"
	FieldSalaryMax           FilterField = "salaryMax"
	FieldRemoteWork          FilterField = "remoteWork"
	FieldJobTypes            FilterField = "jobTypes"
	FieldExperienceLevel     FilterField = "experienceLevel"
	FieldPostedDate          FilterField = "postedDate"
	FieldIndigenousOwnedOnly FilterField = "indigenousOwnedOnly"
	FieldIndustries          FilterField = "industries"
)

// KnownIndustries returns the industry labels offered by the filter UI.
func KnownIndustries() []string {
	return []string{
		"Technology",
		"Healthcare",
		"Education",
		"Government",
		"Non-Profit",
		"Construction",
		"Hospitality",
		"Retail",
		"Finance",
		"Manufacturing",
		"Arts & Culture",
		"Legal",
		"Energy",
		"Transportation",
		"Other",
	}
}

// Toggle removes item from set when present and appends it otherwise. The input is not modified.
func Toggle[T comparable](set []T, item T) []T {
	out := make([]T, 0, len(set)+1)
	found := false
	for _, v := range set {
		if v == item {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

// IntPtr is a convenience for building salary bounds.
func IntPtr(v int) *int {
	return &v
}
