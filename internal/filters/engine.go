// Package filters evaluates a job filter state against job postings.
package filters

import (
	"slices"
	"time"

	"iopps-workers/internal/models"
)

// Evaluate returns the jobs that satisfy every active facet, relative to the current time.
func Evaluate(jobs []models.JobRecord, state models.FilterState) []models.JobRecord {
	return EvaluateAt(jobs, state, time.Now())
}

// EvaluateAt is Evaluate with an explicit evaluation instant. Input order is preserved and
// the returned slice is never nil.
func EvaluateAt(jobs []models.JobRecord, state models.FilterState, now time.Time) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(jobs))
	for _, job := range jobs {
		if Matches(job, state, now) {
			out = append(out, job)
		}
	}
	return out
}

// Matches reports whether one job passes every active facet.
func Matches(job models.JobRecord, state models.FilterState, now time.Time) bool {
	return matchSalary(job, state) &&
		matchRemoteWork(job, state) &&
		matchJobType(job, state) &&
		matchExperience(job, state) &&
		matchPostedDate(job, state, now) &&
		matchIndigenousOwned(job, state) &&
		matchIndustry(job, state)
}

func matchSalary(job models.JobRecord, state models.FilterState) bool {
	if state.SalaryMin == nil && state.SalaryMax == nil {
		return true
	}
	salary, ok := ExtractSalary(job.SalaryRange)
	if !ok {
		return true
	}
	if state.SalaryMin != nil && salary < float64(*state.SalaryMin) {
		return false
	}
	if state.SalaryMax != nil && salary > float64(*state.SalaryMax) {
		return false
	}
	return true
}

func matchRemoteWork(job models.JobRecord, state models.FilterState) bool {
	if len(state.RemoteWork) == 0 {
		return true
	}
	return slices.Contains(state.RemoteWork, RemoteWorkStatus(job))
}

func matchJobType(job models.JobRecord, state models.FilterState) bool {
	if len(state.JobTypes) == 0 {
		return true
	}
	return slices.Contains(state.JobTypes, NormalizeJobType(job.EmploymentType))
}

func matchExperience(job models.JobRecord, state models.FilterState) bool {
	if len(state.ExperienceLevel) == 0 {
		return true
	}
	level, ok := ExperienceLevelOf(job)
	if !ok {
		return true
	}
	return slices.Contains(state.ExperienceLevel, level)
}

func matchPostedDate(job models.JobRecord, state models.FilterState, now time.Time) bool {
	threshold, active := state.PostedDate.ThresholdHours()
	if !active {
		return true
	}
	hours, ok := HoursSincePosted(job, now)
	if !ok {
		return true
	}
	return hours <= threshold
}

func matchIndigenousOwned(job models.JobRecord, state models.FilterState) bool {
	return !state.IndigenousOwnedOnly || job.IndigenousOwned
}

func matchIndustry(job models.JobRecord, state models.FilterState) bool {
	if len(state.Industries) == 0 {
		return true
	}
	industry := JobIndustry(job)
	return industry != "" && slices.Contains(state.Industries, industry)
}

// ActiveFilterCount counts the facets that differ from their default value.
func ActiveFilterCount(state models.FilterState) int {
	count := 0
	if state.SalaryMin != nil || state.SalaryMax != nil {
		count++
	}
	if len(state.RemoteWork) > 0 {
		count++
	}
	if len(state.JobTypes) > 0 {
		count++
	}
	if len(state.ExperienceLevel) > 0 {
		count++
	}
	if state.PostedDate != "" && state.PostedDate != models.PostedAny {
		count++
	}
	if state.IndigenousOwnedOnly {
		count++
	}
	if len(state.Industries) > 0 {
		count++
	}
	return count
}
