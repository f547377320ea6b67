package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Metadata bounds applied by LaunchRequest.Validate.
const (
	MaxNameLength        = 32
	MaxSymbolLength      = 10
	MaxDescriptionLength = 1000
)

// LaunchRequest is the inbound token-creation request from the chat layer.
type LaunchRequest struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Description string   `json:"description"`
	ImageRef    string   `json:"image_ref,omitempty"`
	Platforms   []string `json:"platforms"`
}

// ValidationError reports malformed caller input. No side effect happens before it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Normalize trims whitespace from metadata fields.
func (r LaunchRequest) Normalize() LaunchRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.Description = strings.TrimSpace(r.Description)
	r.ImageRef = strings.TrimSpace(r.ImageRef)
	platforms := make([]string, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		platforms = append(platforms, strings.TrimSpace(p))
	}
	r.Platforms = platforms
	return r
}

// Validate checks required metadata and that every requested platform is configured.
func (r LaunchRequest) Validate(configured map[string]bool) error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("exceeds %d characters", MaxNameLength)}
	}
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if utf8.RuneCountInString(r.Symbol) > MaxSymbolLength {
		return &ValidationError{Field: "symbol", Reason: fmt.Sprintf("exceeds %d characters", MaxSymbolLength)}
	}
	if strings.ContainsAny(r.Symbol, " \t\n") {
		return &ValidationError{Field: "symbol", Reason: "must not contain whitespace"}
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxDescriptionLength)}
	}
	if len(r.Platforms) == 0 {
		return &ValidationError{Field: "platforms", Reason: "must name at least one platform"}
	}

	seen := make(map[string]bool, len(r.Platforms))
	for _, p := range r.Platforms {
		if p == "" {
			return &ValidationError{Field: "platforms", Reason: "contains an empty name"}
		}
		if seen[p] {
			return &ValidationError{Field: "platforms", Reason: fmt.Sprintf("lists %q twice", p)}
		}
		seen[p] = true
		if !configured[p] {
			return &ValidationError{Field: "platforms", Reason: fmt.Sprintf("%q is not configured", p)}
		}
	}
	return nil
}
