package notify

import (
	"fmt"
	"html"
	"strings"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

const testMailSubject = "Errsight test notification"

// chatSnippetLength bounds how much of the raw error chat channels show.
const chatSnippetLength = 300

func chatSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > chatSnippetLength {
		return s[:chatSnippetLength] + "…"
	}
	return s
}

// reportEvent formats an analyzed error for the chat channels.
func reportEvent(r Report) Event {
	title := fmt.Sprintf("%s error in %s", r.Analysis.ErrorType, r.ProjectName)

	var bodyParts []string
	bodyParts = append(bodyParts, chatSnippet(r.RawError))
	if r.Analysis.Reason != "" {
		bodyParts = append(bodyParts, "Reason: "+r.Analysis.Reason)
	}
	if r.Analysis.Solution != "" {
		bodyParts = append(bodyParts, "Suggested fix: "+r.Analysis.Solution)
	}
	body := strings.Join(bodyParts, "\n")

	fields := []Field{
		{Name: "Project", Value: r.ProjectName, Short: true},
		{Name: "Status", Value: string(r.Analysis.StatusCode), Short: true},
	}
	if r.Analysis.Location != "" {
		fields = append(fields, Field{Name: "Location", Value: r.Analysis.Location, Short: true})
	}
	if r.Provider != "" {
		fields = append(fields, Field{Name: "Analyzed by", Value: r.Provider + "/" + r.Model, Short: true})
	}
	if r.LogID != "" {
		fields = append(fields, Field{Name: "Log", Value: r.LogID, Short: false})
	}

	return Event{
		Title:    title,
		Body:     body,
		Severity: SeverityError,
		Color:    severityColor(SeverityError),
		Fields:   fields,
	}
}

// digestEvent formats a periodic activity summary.
func digestEvent(rep *DailyReport) Event {
	title := fmt.Sprintf("Errsight daily digest: %d errors across %d projects",
		rep.TotalErrors, len(rep.Projects))

	var lines []string
	for _, p := range rep.Projects {
		line := fmt.Sprintf("%s: %d errors", p.ProjectName, p.Total)
		if p.Failures > 0 {
			line += fmt.Sprintf(" (%d analysis failures)", p.Failures)
		}
		lines = append(lines, line)
	}
	body := strings.Join(lines, "\n")

	severity := SeverityInfo
	if rep.TotalFailures > 0 {
		severity = SeverityError
	}

	return Event{
		Title:    title,
		Body:     body,
		Severity: severity,
		Color:    severityColor(severity),
		Fields: []Field{
			{Name: "Window", Value: fmt.Sprintf("%s – %s",
				rep.PeriodStart.Format("Jan 2 15:04"), rep.PeriodEnd.Format("Jan 2 15:04")), Short: true},
			{Name: "Analysis failures", Value: fmt.Sprintf("%d", rep.TotalFailures), Short: true},
		},
	}
}

func reportSubject(r Report) string {
	return fmt.Sprintf("[Errsight] %s: %s error", r.ProjectName, r.Analysis.ErrorType)
}

// reportHTML renders the full analysis as a self-contained HTML mail body.
func reportHTML(r Report) string {
	esc := html.EscapeString
	var b strings.Builder

	b.WriteString(`<div style="font-family:Arial,Helvetica,sans-serif;max-width:640px;margin:0 auto;border:1px solid #e0e0e0;border-radius:8px;overflow:hidden">`)
	fmt.Fprintf(&b, `<div style="background:#b71c1c;color:#fff;padding:16px 24px"><h2 style="margin:0">Error in %s</h2></div>`, esc(r.ProjectName))
	b.WriteString(`<div style="padding:24px">`)

	fmt.Fprintf(&b, `<pre style="background:#263238;color:#eceff1;padding:12px;border-radius:4px;white-space:pre-wrap;word-break:break-word">%s</pre>`, esc(r.RawError))

	b.WriteString(`<table style="width:100%;border-collapse:collapse;margin:16px 0">`)
	row := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, `<tr><td style="padding:6px 12px 6px 0;font-weight:bold;vertical-align:top;white-space:nowrap">%s</td><td style="padding:6px 0">%s</td></tr>`, esc(name), esc(value))
	}
	row("Error type", r.Analysis.ErrorType)
	row("Status code", string(r.Analysis.StatusCode))
	row("Location", r.Analysis.Location)
	row("Reason", r.Analysis.Reason)
	row("Suggested fix", r.Analysis.Solution)
	b.WriteString(`</table>`)

	if r.Stack != "" {
		fmt.Fprintf(&b, `<details><summary style="cursor:pointer;font-weight:bold">Stack trace</summary><pre style="background:#f5f5f5;padding:12px;border-radius:4px;white-space:pre-wrap;word-break:break-word">%s</pre></details>`, esc(r.Stack))
	}

	footer := fmt.Sprintf("Analyzed by %s/%s", r.Provider, r.Model)
	if r.LogID != "" {
		footer += " · log " + r.LogID
	}
	fmt.Fprintf(&b, `<p style="color:#9e9e9e;font-size:12px;margin-top:24px">%s</p>`, esc(footer))

	b.WriteString(`</div></div>`)
	return b.String()
}

// testMailHTML renders the body delivered when an operator tests their
// SMTP configuration.
func testMailHTML(cfg MailConfig) string {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,Helvetica,sans-serif;max-width:640px;margin:0 auto;border:1px solid #e0e0e0;border-radius:8px;overflow:hidden">`)
	b.WriteString(`<div style="background:#1b5e20;color:#fff;padding:16px 24px"><h2 style="margin:0">Errsight mail is working</h2></div>`)
	fmt.Fprintf(&b, `<div style="padding:24px"><p>This is a test notification sent as <b>%s</b> to <b>%s</b>.</p><p>Error reports for this project will arrive at this address.</p></div>`, esc(cfg.Username), esc(cfg.To))
	b.WriteString(`</div>`)
	return b.String()
}
