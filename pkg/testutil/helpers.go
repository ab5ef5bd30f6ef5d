// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/feedmix/internal/ration"
)

// FindOutcome finds a ration outcome by name in the results slice.
// Returns a pointer to the outcome if found, nil otherwise.
func FindOutcome(results []ration.Outcome, name string) *ration.Outcome {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}
