package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"solana-token-launcher/internal/domain"
)

var attemptsHeader = []string{
	"token_id", "platform", "provider_id", "started_at", "duration_ms", "outcome", "error_kind", "error_detail",
}

// RenderAttemptsCSV renders every attempt of a report as CSV, platforms in report order.
func RenderAttemptsCSV(r *domain.LaunchReport) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(attemptsHeader); err != nil {
		return "", err
	}
	for _, p := range r.Platforms {
		for _, a := range p.Attempts {
			row := []string{
				r.TokenID,
				p.Platform,
				a.ProviderID,
				strconv.FormatInt(a.StartedAt, 10),
				strconv.FormatInt(a.DurationMs, 10),
				string(a.Outcome),
				a.ErrorKind,
				a.ErrorDetail,
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
