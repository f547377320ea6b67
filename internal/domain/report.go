package domain

import (
	"fmt"
	"strings"
)

// PlatformOutcome is the reported status of one platform.
type PlatformOutcome struct {
	Platform          string          `json:"platform"`
	State             PlatformState   `json:"state"`
	SucceededProvider string          `json:"succeeded_provider,omitempty"`
	ListingReference  string          `json:"listing_reference,omitempty"`
	Attempts          []AttemptRecord `json:"attempts"`
}

// LaunchReport is the structured result of a launch, mirroring TokenRecord.
// Rendering is left to the caller; Summary holds one plain line per platform.
type LaunchReport struct {
	TokenID       string            `json:"token_id"`
	Name          string            `json:"name"`
	Symbol        string            `json:"symbol"`
	MintAddress   string            `json:"mint_address,omitempty"`
	MintSignature string            `json:"mint_signature,omitempty"`
	Simulated     bool              `json:"simulated,omitempty"`
	LaunchState   LaunchState       `json:"launch_state"`
	Cancelled     bool              `json:"cancelled,omitempty"`
	Platforms     []PlatformOutcome `json:"platforms"`
	Summary       []string          `json:"summary"`
}

// NewLaunchReport builds a report from a record snapshot. Platforms are sorted by name.
func NewLaunchReport(rec *TokenRecord) *LaunchReport {
	report := &LaunchReport{
		TokenID:     rec.ID,
		Name:        rec.Name,
		Symbol:      rec.Symbol,
		Simulated:   rec.Simulated,
		LaunchState: rec.LaunchState,
	}
	if rec.MintAddress != nil {
		report.MintAddress = *rec.MintAddress
	}
	if rec.MintSignature != nil {
		report.MintSignature = *rec.MintSignature
	}

	for _, name := range rec.Platforms() {
		ps := rec.PlatformStatuses[name]
		out := PlatformOutcome{
			Platform: name,
			State:    ps.State,
			Attempts: append([]AttemptRecord(nil), ps.Attempts...),
		}
		if ps.SucceededProvider != nil {
			out.SucceededProvider = *ps.SucceededProvider
		}
		if ps.ListingReference != nil {
			out.ListingReference = *ps.ListingReference
		}
		report.Platforms = append(report.Platforms, out)
		report.Summary = append(report.Summary, out.SummaryLine())
	}
	return report
}

// Succeeded returns the number of platforms that reached SUCCEEDED.
func (r *LaunchReport) Succeeded() int {
	n := 0
	for _, p := range r.Platforms {
		if p.State == PlatformStateSucceeded {
			n++
		}
	}
	return n
}

// SummaryLine renders a single human-readable line naming the state and,
// on failure, the error kind of every attempted provider.
func (p PlatformOutcome) SummaryLine() string {
	switch p.State {
	case PlatformStateSucceeded:
		line := fmt.Sprintf("%s: SUCCEEDED via %s", p.Platform, p.SucceededProvider)
		if p.ListingReference != "" {
			line += " (" + p.ListingReference + ")"
		}
		return line + fmt.Sprintf(" after %d attempt%s", len(p.Attempts), plural(len(p.Attempts)))
	case PlatformStateUnsupported:
		if len(p.Attempts) == 0 {
			return fmt.Sprintf("%s: UNSUPPORTED (no provider configured)", p.Platform)
		}
		return fmt.Sprintf("%s: UNSUPPORTED [%s]", p.Platform, attemptKinds(p.Attempts))
	case PlatformStateFailed:
		return fmt.Sprintf("%s: FAILED [%s]", p.Platform, attemptKinds(p.Attempts))
	case PlatformStateInProgress:
		return fmt.Sprintf("%s: IN_PROGRESS (%d attempt%s so far)", p.Platform, len(p.Attempts), plural(len(p.Attempts)))
	default:
		return fmt.Sprintf("%s: %s", p.Platform, p.State)
	}
}

func attemptKinds(attempts []AttemptRecord) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		kind := a.ErrorKind
		if kind == "" {
			kind = strings.ToUpper(string(a.Outcome))
		}
		parts = append(parts, a.ProviderID+": "+kind)
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
