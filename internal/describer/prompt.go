// Package describer turns captured report pages into prose descriptions
// using Gemini on Vertex AI.
package describer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"katari/internal/model"
)

// promptTemplate frames the request for the model. The numbered requirements
// drive the structure of the generated description, so treat wording changes
// as behavior changes.
const promptTemplate = `You are analyzing a Looker dashboard/report. Based on the provided information, write a detailed description of this report.

**Report Name:** %s

**Initial Description:** %s

**Page HTML:** (provided below)

**Screenshot:** (provided as image)

Please provide a comprehensive description that includes:
1. The purpose and main function of this report
2. Key metrics, KPIs, or data points displayed
3. Any filters, date ranges, or parameters visible
4. The types of visualizations used (charts, tables, etc.)
5. Who would likely use this report and for what decisions
6. Any notable features or sections of the dashboard

Write the description in clear, professional language suitable for documentation.`

const (
	// maxHTMLChars caps the HTML payload sent to the model. Multi-page
	// reports split this budget evenly across pages.
	maxHTMLChars     = 50000
	truncationMarker = "\n... [HTML truncated]"
)

// BuildPrompt renders the full text part for a describe request. Single-page
// reports get one HTML block; multi-page reports get a page manifest line and
// one labeled HTML block per captured page, in page order.
func BuildPrompt(req *model.DescribeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, promptTemplate, req.ReportName, req.ExistingDescription)

	multi := len(req.Pages) > 1
	if multi {
		names := make([]string, len(req.Pages))
		for i, page := range req.Pages {
			names[i] = page.Name
		}
		fmt.Fprintf(&b, "\n\nThis report has %d pages, in order: %s. One screenshot per page is attached, in the same order. Describe each page in turn, then summarize what the report covers as a whole.",
			len(req.Pages), strings.Join(names, ", "))
	}

	budget := maxHTMLChars
	if len(req.Pages) > 0 {
		budget = maxHTMLChars / len(req.Pages)
	}
	for _, page := range req.Pages {
		html := truncateHTML(string(page.HTML), budget)
		if multi {
			fmt.Fprintf(&b, "\n\n---\n\n**HTML Content (page %d: %s):**\n```html\n%s\n```", page.Index+1, page.Name, html)
		} else {
			fmt.Fprintf(&b, "\n\n---\n\n**HTML Content:**\n```html\n%s\n```", html)
		}
	}
	return b.String()
}

// truncateHTML cuts s to at most max bytes without splitting a rune, and
// appends a marker so the model knows content is missing.
func truncateHTML(s string, max int) string {
	if max <= 0 {
		max = maxHTMLChars
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
