package formulation

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// BoundsMode selects how a BoundsPolicy's Min and Max are interpreted.
type BoundsMode string

const (
	// BoundsFraction expresses Min and Max as fractions of the total weight.
	BoundsFraction BoundsMode = "fraction"
	// BoundsAbsolute expresses Min and Max in kilograms.
	BoundsAbsolute BoundsMode = "absolute"
)

// Preset names for the bounds policies used by the front ends.
const (
	PresetFloor     = "floor"
	PresetCapped    = "capped"
	PresetFlat      = "flat"
	PresetUnbounded = "unbounded"
)

// BoundsPolicy maps the total batch weight to a uniform per-ingredient
// weight range. Max of +Inf leaves ingredients unbounded above.
type BoundsPolicy struct {
	Mode BoundsMode `json:"mode" yaml:"mode"`
	Min  float64    `json:"min" yaml:"min"`
	Max  float64    `json:"max" yaml:"max"`
}

var presets = map[string]BoundsPolicy{
	PresetFloor:     FractionBounds(0.01, math.Inf(1)),
	PresetCapped:    FractionBounds(0.01, 0.70),
	PresetFlat:      AbsoluteBounds(0.2, math.Inf(1)),
	PresetUnbounded: FractionBounds(0, math.Inf(1)),
}

// FractionBounds returns a policy whose limits scale with the total weight.
func FractionBounds(min, max float64) BoundsPolicy {
	return BoundsPolicy{Mode: BoundsFraction, Min: min, Max: max}
}

// AbsoluteBounds returns a policy with fixed limits in kilograms.
func AbsoluteBounds(minKg, maxKg float64) BoundsPolicy {
	return BoundsPolicy{Mode: BoundsAbsolute, Min: minKg, Max: maxKg}
}

// Unbounded returns the 0 to +Inf policy.
func Unbounded() BoundsPolicy {
	return presets[PresetUnbounded]
}

// PolicyByName resolves a named preset.
func PolicyByName(name string) (BoundsPolicy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	policy, ok := presets[key]
	if !ok {
		return BoundsPolicy{}, invalidf("bounds", name, "unknown bounds preset %q (supported: %s)",
			name, strings.Join(PresetNames(), ", "))
	}
	return policy, nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lower is the per-ingredient minimum weight in kilograms.
func (p BoundsPolicy) Lower(totalWeightKg float64) float64 {
	if p.mode() == BoundsAbsolute {
		return p.Min
	}
	return totalWeightKg * p.Min
}

// Upper is the per-ingredient maximum weight in kilograms, or +Inf.
func (p BoundsPolicy) Upper(totalWeightKg float64) float64 {
	if math.IsInf(p.Max, 1) {
		return math.Inf(1)
	}
	if p.mode() == BoundsAbsolute {
		return p.Max
	}
	return totalWeightKg * p.Max
}

// Bounded reports whether the policy caps ingredient weights.
func (p BoundsPolicy) Bounded() bool {
	return !math.IsInf(p.Max, 1)
}

func (p BoundsPolicy) mode() BoundsMode {
	if p.Mode == "" {
		return BoundsFraction
	}
	return p.Mode
}

// Validate checks the policy's own ranges, independent of any ingredient set.
func (p BoundsPolicy) Validate() error {
	if math.IsNaN(p.Min) || math.IsNaN(p.Max) {
		return invalidf("bounds", p, "bounds cannot be NaN")
	}
	switch p.mode() {
	case BoundsFraction:
		if p.Min < 0 || p.Min >= 1 {
			return invalidf("bounds.min", p.Min, "minimum fraction %v must be in [0, 1)", p.Min)
		}
		if !math.IsInf(p.Max, 1) && (p.Max <= 0 || p.Max > 1) {
			return invalidf("bounds.max", p.Max, "maximum fraction %v must be in (0, 1] or unbounded", p.Max)
		}
	case BoundsAbsolute:
		if p.Min < 0 || math.IsInf(p.Min, 0) {
			return invalidf("bounds.min", p.Min, "minimum weight %v kg must be non-negative", p.Min)
		}
		if p.Max <= 0 {
			return invalidf("bounds.max", p.Max, "maximum weight %v kg must be positive or unbounded", p.Max)
		}
	default:
		return invalidf("bounds.mode", p.Mode, "unsupported bounds mode %q", p.Mode)
	}
	if p.Min > p.Max {
		return invalidf("bounds", p, "minimum %v exceeds maximum %v", p.Min, p.Max)
	}
	return nil
}

func (p BoundsPolicy) String() string {
	upper := "inf"
	if p.Bounded() {
		upper = fmt.Sprintf("%g", p.Max)
	}
	return fmt.Sprintf("%s[%g, %s]", p.mode(), p.Min, upper)
}
