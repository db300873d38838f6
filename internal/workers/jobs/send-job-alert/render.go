package sendjobalert

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"iopps-workers/internal/filters"
	"iopps-workers/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
)

const snippetLength = 160

var stripTags = bluemonday.StrictPolicy()

type alertItem struct {
	Title    string
	Employer string
	Location string
	Salary   string
	Posted   string
	Snippet  string
	URL      string
}

var emailTemplate = template.Must(template.New("alert").Parse(`<html><body>
<h2>{{.Heading}}</h2>
<ul>
{{range .Items}}<li>
<a href="{{.URL}}"><strong>{{.Title}}</strong></a>{{if .Employer}} at {{.Employer}}{{end}}<br/>
{{if .Location}}{{.Location}}{{end}}{{if .Salary}} · {{.Salary}}{{end}}{{if .Posted}} · posted {{.Posted}}{{end}}
{{if .Snippet}}<p>{{.Snippet}}</p>{{end}}
</li>
{{end}}</ul>
{{if .More}}<p>and {{.More}} more on IOPPS.</p>{{end}}
</body></html>`))

func subjectFor(matched int) string {
	if matched == 1 {
		return "1 new job matches your IOPPS filters"
	}
	return fmt.Sprintf("%s new jobs match your IOPPS filters", humanize.Comma(int64(matched)))
}

func (h *Handler) items(jobs []models.JobRecord, now time.Time) []alertItem {
	limit := h.config.MaxJobs
	if limit < 1 || limit > len(jobs) {
		limit = len(jobs)
	}

	out := make([]alertItem, 0, limit)
	for _, job := range jobs[:limit] {
		item := alertItem{
			Title:    job.Title,
			Employer: job.EmployerName,
			Location: job.Location,
			Snippet:  snippet(job.Description),
			URL:      job.ExternalURL,
		}
		if item.URL == "" && job.ID != "" {
			item.URL = strings.TrimRight(h.config.SiteURL, "/") + "/jobs/" + job.ID
		}
		if salary, ok := filters.ExtractSalary(job.SalaryRange); ok {
			item.Salary = "$" + humanize.Comma(int64(math.Round(salary)))
		}
		if job.CreatedAt.Valid {
			item.Posted = humanize.RelTime(job.CreatedAt.Time, now, "ago", "from now")
		}
		out = append(out, item)
	}
	return out
}

// snippet strips markup from a description and shortens it on a word boundary.
// The result is plain text: the strict policy's entity escaping is undone so the
// email template escapes it exactly once.
func snippet(description string) string {
	text := strings.Join(strings.Fields(html.UnescapeString(stripTags.Sanitize(description))), " ")
	if len(text) <= snippetLength {
		return text
	}
	limit := snippetLength
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := strings.LastIndex(text[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "…"
}

func renderEmail(items []alertItem, matched int) (textBody, htmlBody string, err error) {
	heading := subjectFor(matched)

	var text strings.Builder
	text.WriteString(heading + "\n\n")
	for _, item := range items {
		text.WriteString("- " + item.Title)
		if item.Employer != "" {
			text.WriteString(" at " + item.Employer)
		}
		if item.Location != "" {
			text.WriteString(" (" + item.Location + ")")
		}
		if item.Salary != "" {
			text.WriteString(", " + item.Salary)
		}
		text.WriteString("\n")
		if item.URL != "" {
			text.WriteString("  " + item.URL + "\n")
		}
	}
	more := matched - len(items)
	if more > 0 {
		text.WriteString(fmt.Sprintf("\nand %d more on IOPPS.\n", more))
	}

	var body bytes.Buffer
	err = emailTemplate.Execute(&body, map[string]interface{}{
		"Heading": heading,
		"Items":   items,
		"More":    more,
	})
	if err != nil {
		return "", "", fmt.Errorf("render alert email: %w", err)
	}
	return text.String(), body.String(), nil
}

func renderSMS(items []alertItem, matched int) string {
	msg := subjectFor(matched)
	if len(items) > 0 {
		msg += ": " + items[0].Title
		if items[0].Employer != "" {
			msg += " at " + items[0].Employer
		}
	}
	return msg
}
