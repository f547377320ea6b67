// Package reporting renders launch reports for operators.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-token-launcher/internal/domain"
	"solana-token-launcher/internal/storage"
)

// RenderStatusMarkdown renders one token's launch report as Markdown.
func RenderStatusMarkdown(r *domain.LaunchReport, generatedAt time.Time) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Launch Report: %s (%s)\n\n", cell(r.Name), cell(r.Symbol)))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339)))

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Token ID | %s |\n", cell(r.TokenID)))
	sb.WriteString(fmt.Sprintf("| Mint | %s |\n", cell(r.MintAddress)))
	sb.WriteString(fmt.Sprintf("| Signature | %s |\n", cell(r.MintSignature)))
	sb.WriteString(fmt.Sprintf("| Launch State | %s |\n", r.LaunchState))
	sb.WriteString(fmt.Sprintf("| Simulated | %s |\n", yesNo(r.Simulated)))
	sb.WriteString(fmt.Sprintf("| Platforms | %d of %d succeeded |\n", r.Succeeded(), len(r.Platforms)))
	sb.WriteString("\n")

	if r.Cancelled {
		sb.WriteString("**Launch interrupted.** Platforms left IN_PROGRESS continue on retry.\n\n")
	}

	// Platforms
	sb.WriteString("## Platforms\n\n")
	if len(r.Platforms) > 0 {
		sb.WriteString("| Platform | State | Provider | Reference | Attempts |\n")
		sb.WriteString("|----------|-------|----------|-----------|----------|\n")
		for _, p := range r.Platforms {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
				cell(p.Platform), p.State, cell(p.SucceededProvider), cell(p.ListingReference), len(p.Attempts)))
		}
	} else {
		sb.WriteString("No platforms requested.\n")
	}
	sb.WriteString("\n")

	// Attempts
	sb.WriteString("## Attempts\n\n")
	recorded := false
	for _, p := range r.Platforms {
		if len(p.Attempts) == 0 {
			continue
		}
		recorded = true
		sb.WriteString(fmt.Sprintf("### %s\n\n", cell(p.Platform)))
		sb.WriteString("| # | Provider | Started (ms) | Duration (ms) | Outcome | Error |\n")
		sb.WriteString("|---|----------|--------------|---------------|---------|-------|\n")
		for i, a := range p.Attempts {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %s | %s |\n",
				i+1, cell(a.ProviderID), a.StartedAt, a.DurationMs, a.Outcome, cell(a.ErrorKind)))
		}
		sb.WriteString("\n")
	}
	if !recorded {
		sb.WriteString("No provider attempts recorded.\n\n")
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	for _, line := range r.Summary {
		sb.WriteString(fmt.Sprintf("- %s\n", line))
	}

	return sb.String()
}

// RenderListMarkdown renders all tokens as a Markdown table.
func RenderListMarkdown(records []*domain.TokenRecord) string {
	var sb strings.Builder

	sb.WriteString("# Tokens\n\n")
	if len(records) == 0 {
		sb.WriteString("No tokens.\n")
		return sb.String()
	}

	sb.WriteString("| ID | Symbol | Name | Mint | State | Succeeded | Created (ms) |\n")
	sb.WriteString("|----|--------|------|------|-------|-----------|--------------|\n")
	for _, rec := range records {
		report := domain.NewLaunchReport(rec)
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d/%d | %d |\n",
			cell(rec.ID), cell(rec.Symbol), cell(rec.Name), cell(report.MintAddress),
			rec.LaunchState, report.Succeeded(), len(report.Platforms), rec.CreatedAt))
	}
	return sb.String()
}

// RenderProviderStatsMarkdown renders per-provider reliability for one platform.
func RenderProviderStatsMarkdown(platform string, stats []storage.ProviderStats) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Provider Reliability: %s\n\n", cell(platform)))
	if len(stats) == 0 {
		sb.WriteString("No attempts recorded.\n")
		return sb.String()
	}

	sb.WriteString("| Provider | Attempts | Successes | Timeouts | Success Rate | Avg Duration (ms) |\n")
	sb.WriteString("|----------|----------|-----------|----------|--------------|-------------------|\n")
	for _, s := range stats {
		rate := 0.0
		if s.Attempts > 0 {
			rate = float64(s.Successes) / float64(s.Attempts) * 100
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.1f%% | %.1f |\n",
			cell(s.ProviderID), s.Attempts, s.Successes, s.Timeouts, rate, s.AvgDurationMs))
	}
	return sb.String()
}

// cell renders a table value; empty becomes "-" and pipes are escaped.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
