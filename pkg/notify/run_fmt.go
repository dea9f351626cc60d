// Package notify — run_fmt.go formats daily pipeline run reports.
//
// Data model mirrors one pipeline invocation: the picked item on success,
// the failed stage on error, or an explicit "nothing left to publish" day.
package notify

import (
	"fmt"
	"strings"
)

// RunReportData holds the outcome of one pipeline run for notification.
type RunReportData struct {
	Date        string
	Status      string // "published", "generated", "no_eligible", "failed"
	Stage       string // failed stage, when Status == "failed"
	ItemName    string
	Category    string
	SourceURL   string
	ArticlePath string
	Err         string
	TokensUsed  int
	Cost        float64
}

// FormatRunReport renders a run outcome as a notification message.
func FormatRunReport(d RunReportData) Message {
	switch d.Status {
	case "failed":
		return Message{
			Title:  fmt.Sprintf("Digest run failed (%s)", d.Date),
			Body:   formatFailure(d),
			Format: "markdown",
		}
	case "no_eligible":
		return Message{
			Title:  fmt.Sprintf("Digest run %s: nothing to publish", d.Date),
			Body:   escapeMarkdown("Every known item has already been published. Add sources or prune the ledger."),
			Format: "markdown",
		}
	default:
		return Message{
			Title:  fmt.Sprintf("Digest %s: %s", d.Date, d.ItemName),
			Body:   formatSuccess(d),
			Format: "markdown",
			URL:    d.SourceURL,
		}
	}
}

func formatSuccess(d RunReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", escapeMarkdown("Picked:"), escapeMarkdown(d.ItemName))
	if d.Category != "" {
		fmt.Fprintf(&b, "%s %s\n", escapeMarkdown("Category:"), escapeMarkdown(d.Category))
	}
	if d.ArticlePath != "" {
		fmt.Fprintf(&b, "%s %s\n", escapeMarkdown("Article:"), escapeMarkdown(d.ArticlePath))
	}
	if d.Status == "generated" {
		b.WriteString(escapeMarkdown("Publishing disabled; article stored locally.") + "\n")
	}
	if d.TokensUsed > 0 {
		fmt.Fprintf(&b, "%s %d tokens, \\$%s\n", escapeMarkdown("Usage:"), d.TokensUsed, escapeMarkdown(fmt.Sprintf("%.4f", d.Cost)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFailure(d RunReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", escapeMarkdown("Stage:"), escapeMarkdown(d.Stage))
	if d.ItemName != "" {
		fmt.Fprintf(&b, "%s %s\n", escapeMarkdown("Item:"), escapeMarkdown(d.ItemName))
	}
	if d.Err != "" {
		fmt.Fprintf(&b, "%s `%s`", escapeMarkdown("Error:"), escapeMarkdown(d.Err))
	}
	return strings.TrimRight(b.String(), "\n")
}
