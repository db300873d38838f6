package filters

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"iopps-workers/internal/models"
)

// salaryNumber matches a digit run with optional thousands separators and decimal part.
var salaryNumber = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)

// ExtractSalary derives a representative salary from free text. With one number it is used
// as is; with two or more the first two are averaged. ok is false when no number is present.
func ExtractSalary(salaryRange string) (value float64, ok bool) {
	matches := salaryNumber.FindAllString(salaryRange, 2)
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 0:
		return 0, false
	case 1:
		return nums[0], true
	default:
		return (nums[0] + nums[1]) / 2, true
	}
}

// RemoteWorkStatus classifies a job as remote, hybrid or on-site.
func RemoteWorkStatus(job models.JobRecord) models.RemoteWorkOption {
	location := strings.ToLower(job.Location)
	switch {
	case job.RemoteFlag || strings.Contains(location, "remote"):
		return models.RemoteWorkRemote
	case strings.Contains(location, "hybrid"):
		return models.RemoteWorkHybrid
	default:
		return models.RemoteWorkOnSite
	}
}

// NormalizeJobType maps a free-text employment type onto a job type. Unknown or empty
// input is full-time.
func NormalizeJobType(employmentType string) models.JobTypeOption {
	t := strings.ToLower(employmentType)
	switch {
	case strings.Contains(t, "part"):
		return models.JobTypePartTime
	case strings.Contains(t, "contract"):
		return models.JobTypeContract
	case strings.Contains(t, "intern"):
		return models.JobTypeInternship
	default:
		return models.JobTypeFullTime
	}
}

var experienceKeywords = []struct {
	level    models.ExperienceLevelOption
	keywords []string
}{
	{models.ExperienceSenior, []string{"senior", "sr."}},
	{models.ExperienceExecutive, []string{"executive", "director", "vp"}},
	{models.ExperienceEntry, []string{"junior", "jr.", "entry"}},
	{models.ExperienceMid, []string{"mid-level", "intermediate"}},
}

// ExperienceLevelOf infers seniority from the title and description. ok is false when no
// keyword is found.
func ExperienceLevelOf(job models.JobRecord) (level models.ExperienceLevelOption, ok bool) {
	text := strings.ToLower(job.Title + " " + job.Description)
	for _, group := range experienceKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return group.level, true
			}
		}
	}
	return "", false
}

// JobIndustry returns the category, falling back to the industry field.
func JobIndustry(job models.JobRecord) string {
	if job.Category != "" {
		return job.Category
	}
	return job.Industry
}

// HoursSincePosted returns the elapsed hours between the job's creation and now.
func HoursSincePosted(job models.JobRecord, now time.Time) (hours float64, ok bool) {
	if !job.CreatedAt.Valid {
		return 0, false
	}
	return now.Sub(job.CreatedAt.Time).Hours(), true
}
