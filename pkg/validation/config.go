// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/feedmix/pkg/constants"
)

// ConfigValidator checks a formulation configuration for suspicious but
// loadable settings.
type ConfigValidator struct {
	Rations      []RationConfig
	OutputFormat string
}

// RationConfig is the subset of a ration needed for validation.
type RationConfig struct {
	Name        string
	Active      bool
	Ingredients []string
}

// ValidateSelection warns when a ration selects too few or repeated ingredients.
func ValidateSelection(rationName string, ingredients []string) []string {
	var warnings []string

	if len(ingredients) < constants.MinSelection {
		warnings = append(warnings, fmt.Sprintf("Ration '%s' selects %d ingredients; at least %d are recommended",
			rationName, len(ingredients), constants.MinSelection))
	}

	seen := make(map[string]bool, len(ingredients))
	for _, name := range ingredients {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf("Ration '%s' selects ingredient '%s' more than once", rationName, name))
		}
		seen[key] = true
	}

	return warnings
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if len(cv.Rations) == 0 {
		return append(warnings, "No rations defined")
	}

	active := 0
	names := make(map[string]bool, len(cv.Rations))
	for _, ration := range cv.Rations {
		if names[ration.Name] {
			warnings = append(warnings, fmt.Sprintf("Ration name '%s' is used more than once", ration.Name))
		}
		names[ration.Name] = true

		if !ration.Active {
			warnings = append(warnings, fmt.Sprintf("Ration '%s' is inactive and will be skipped", ration.Name))
			continue
		}
		active++
		warnings = append(warnings, ValidateSelection(ration.Name, ration.Ingredients)...)
	}

	if active == 0 {
		warnings = append(warnings, "No active rations; nothing will be formulated")
	}

	if cv.OutputFormat != "" {
		if err := ValidateOutputFormat(cv.OutputFormat); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	return warnings
}
