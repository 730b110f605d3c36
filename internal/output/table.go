package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
)

// ANSI color codes for status output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[0;33m"
	ansiBlue   = "\033[0;34m"
)

// TableOptions controls which columns RenderTable renders and how status is coloured.
type TableOptions struct {
	// Colored wraps status labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludePipeline adds a PIPELINE column. Useful when a report merges
	// several pipelines.
	IncludePipeline bool

	// IncludeDuration adds a DURATION column.
	IncludeDuration bool
}

func statusColor(st models.Status) string {
	switch st {
	case models.StatusFailed:
		return ansiRed
	case models.StatusRemediated:
		return ansiGreen
	case models.StatusDryRun:
		return ansiYellow
	case models.StatusSkipped:
		return ansiBlue
	default:
		return ""
	}
}

// ColorStatus wraps a status string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorStatus(st models.Status, colored bool) string {
	code := statusColor(st)
	if !colored || code == "" {
		return string(st)
	}
	return code + string(st) + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// statusCell returns the status padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay aligned.
func statusCell(st models.Status, width int, colored bool) string {
	text := string(st)
	code := statusColor(st)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := max(width-len(text), 0)
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for ID/label columns.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "~"
}

// detail is the free-text column: the error for failures, otherwise the reason.
func detail(r models.RemediationResult) string {
	if r.Error != "" {
		return r.Error
	}
	return r.Reason
}

// RenderTable writes a formatted results table to w.
// The separator line width is derived from the header row so all rows align.
//
// Column order:
//
//	[PIPELINE]  RESOURCE ID  REGION  STATUS  TYPE  DETAIL  [DURATION]
func RenderTable(w io.Writer, results []models.RemediationResult, opts TableOptions) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No resources processed.")
		return
	}

	const (
		wPipeline = 8
		wResource = 40
		wRegion   = 15
		wStatus   = 10
		wType     = 14
		wDetail   = 55
	)

	var hb strings.Builder
	if opts.IncludePipeline {
		hb.WriteString(fmt.Sprintf("%-*s  ", wPipeline, "PIPELINE"))
	}
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE ID"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wStatus, "STATUS"))
	hb.WriteString(fmt.Sprintf("  %-*s", wType, "TYPE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wDetail, "DETAIL"))
	if opts.IncludeDuration {
		hb.WriteString("  DURATION")
	}
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range results {
		var rb strings.Builder
		if opts.IncludePipeline {
			rb.WriteString(fmt.Sprintf("%-*s  ", wPipeline, truncateField(r.Pipeline, wPipeline)))
		}
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(r.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(r.Region, wRegion)))
		rb.WriteString("  " + statusCell(r.Status, wStatus, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wType, truncateField(string(r.ResourceType), wType)))
		rb.WriteString(fmt.Sprintf("  %-*s", wDetail, ShortenMessage(detail(r), wDetail)))
		if opts.IncludeDuration {
			rb.WriteString(fmt.Sprintf("  %s", r.Duration.Round(time.Millisecond)))
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderSummary writes a one-block run summary to w.
func RenderSummary(w io.Writer, report *models.RemediationReport) {
	s := report.Summary
	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(w, "Profile: %-20s  Account: %-14s  Regions: %s  Mode: %s\n",
		report.Profile, report.AccountID, strings.Join(report.Regions, ","), mode)
	fmt.Fprintf(w, "Resources: %d  Remediated: %d  Compliant: %d  Skipped: %d  Dry-run: %d  Failed: %d\n",
		s.TotalResources, s.Remediated, s.Compliant, s.Skipped, s.DryRun, s.Failed)

	if len(report.Errors) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Errors")
	for _, e := range report.Errors {
		id := e.ResourceID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "  %-8s %-10s %-15s %-40s %s\n", e.Pipeline, e.Stage, e.Region, id, e.Message)
	}
}
