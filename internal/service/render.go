package service

import (
	"fmt"
	"strings"

	"admem/internal/storage"
)

// Rendering produces the plain-text answers returned to tool callers.
// Deliberately terse: the output lands inside a model context window, so
// every line has to earn its tokens.

// RenderRemember confirms a recorded decision
func RenderRemember(result *RememberResult) string {
	d := result.Decision
	var b strings.Builder
	fmt.Fprintf(&b, "Recorded %s decision for %s: %s", d.Type, result.Project.Name, d.Decision)
	fmt.Fprintf(&b, " (confidence %s", formatConfidence(d.Confidence))
	if d.Public {
		b.WriteString(", shared publicly")
	}
	b.WriteString(")")
	return b.String()
}

// RenderRecall lists retrieved decisions, best match first
func RenderRecall(result *RecallResult, query string) string {
	if len(result.Matches) == 0 {
		if query == "" {
			return fmt.Sprintf("No decisions recorded for %s yet.", result.Project.Name)
		}
		return fmt.Sprintf("No decisions in %s relevant to %q.", result.Project.Name, query)
	}

	var b strings.Builder
	if query == "" {
		fmt.Fprintf(&b, "Recent decisions in %s:\n", result.Project.Name)
	} else {
		fmt.Fprintf(&b, "Decisions in %s relevant to %q:\n", result.Project.Name, query)
	}
	for i, m := range result.Matches {
		d := m.Decision
		fmt.Fprintf(&b, "%d. [%s] %s\n   Reasoning: %s\n   Confidence: %s",
			i+1, d.Type, d.Decision, d.Reasoning, formatConfidence(d.Confidence))
		if query != "" {
			fmt.Fprintf(&b, " | Relevance: %.2f", m.Similarity)
		}
		if len(d.AlternativesConsidered) > 0 {
			fmt.Fprintf(&b, "\n   Alternatives considered: %s", strings.Join(d.AlternativesConsidered, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTimeline lays out history chronologically, grouped by day
func RenderTimeline(result *TimelineResult, days int) string {
	if len(result.Decisions) == 0 {
		if days > 0 {
			return fmt.Sprintf("No decisions in %s over the last %d days.", result.Project.Name, days)
		}
		return fmt.Sprintf("No decisions recorded for %s yet.", result.Project.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decision timeline for %s (%d decisions):\n", result.Project.Name, len(result.Decisions))
	lastDay := ""
	for _, d := range result.Decisions {
		day := d.CreatedAt.Format("2006-01-02")
		if day != lastDay {
			fmt.Fprintf(&b, "\n%s\n", day)
			lastDay = day
		}
		fmt.Fprintf(&b, "  %s [%s] %s — %s\n",
			d.CreatedAt.Format("15:04"), d.Type, d.Decision, d.Reasoning)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDiscover summarizes mined themes and catalog recommendations
func RenderDiscover(result *DiscoverResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patterns in %s (%d decisions", result.Project.Name, result.Summary.Total)
	if len(result.Summary.ByType) > 0 {
		parts := make([]string, 0, len(result.Summary.ByType))
		for _, typ := range []storage.DecisionType{
			storage.TypeTechStack, storage.TypeArchitecture, storage.TypePattern, storage.TypeToolChoice,
		} {
			if n := result.Summary.ByType[typ]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, typ))
			}
		}
		fmt.Fprintf(&b, ": %s", strings.Join(parts, ", "))
	}
	b.WriteString("):\n")

	if len(result.Mined) == 0 {
		b.WriteString("No recurring themes yet.\n")
	} else {
		b.WriteString("Recurring themes:\n")
		for _, p := range result.Mined {
			fmt.Fprintf(&b, "  - %s (%s, seen %d times)\n", p.Keyword, p.Category, p.Count)
		}
	}

	if len(result.Similar) > 0 {
		b.WriteString("Related public decisions across projects:\n")
		for _, m := range result.Similar {
			fmt.Fprintf(&b, "  - [%s] %s: %s (relevance %.2f)\n",
				m.Decision.Type, m.Decision.Decision, m.Decision.Reasoning, m.Similarity)
		}
	}

	if len(result.Recommended) > 0 {
		b.WriteString("Recommended for this stack:\n")
		for _, p := range result.Recommended {
			fmt.Fprintf(&b, "  - %s: %s (success rate %s)\n",
				p.Name, p.Description, formatConfidence(p.SuccessRate))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatConfidence renders a [0,1] score as a percentage, "90%"
func formatConfidence(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
