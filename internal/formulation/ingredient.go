// Package formulation builds, solves and interprets the least-cost feed
// blending linear program.
package formulation

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/feedmix/pkg/constants"
)

// Ingredient is one feed ingredient with its nutrient percentages and its
// price per kilogram. Values are never mutated once constructed.
type Ingredient struct {
	Name  string  `json:"name" yaml:"name"`
	CP    float64 `json:"cp" yaml:"cp"`
	TDN   float64 `json:"tdn" yaml:"tdn"`
	Price int64   `json:"price" yaml:"price"`
}

// NewIngredient validates and returns an Ingredient.
func NewIngredient(name string, cp, tdn float64, price int64) (Ingredient, error) {
	ing := Ingredient{Name: strings.TrimSpace(name), CP: cp, TDN: tdn, Price: price}
	if err := ing.Validate(); err != nil {
		return Ingredient{}, err
	}
	return ing, nil
}

// Validate reports an *InvalidModelError when a field is out of range.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return invalidf("name", i.Name, "ingredient name cannot be empty")
	}
	if i.CP < 0 || math.IsNaN(i.CP) || math.IsInf(i.CP, 0) {
		return invalidf("cp", i.CP, "ingredient %s has invalid crude protein %v", i.Name, i.CP)
	}
	if i.TDN < 0 || math.IsNaN(i.TDN) || math.IsInf(i.TDN, 0) {
		return invalidf("tdn", i.TDN, "ingredient %s has invalid total digestible nutrients %v", i.Name, i.TDN)
	}
	if i.Price < 0 {
		return invalidf("price", i.Price, "ingredient %s has negative price %d", i.Name, i.Price)
	}
	return nil
}

func (i Ingredient) String() string {
	return fmt.Sprintf("%s (CP: %g%%, TDN: %g%%, Price: %s%d/kg)", i.Name, i.CP, i.TDN, constants.CurrencySymbol, i.Price)
}

// NutrientTargets holds the per-run nutrient minimums and the batch weight.
type NutrientTargets struct {
	CPMin         float64 `json:"cp" yaml:"cp" mapstructure:"cp"`
	TDNMin        float64 `json:"tdn" yaml:"tdn" mapstructure:"tdn"`
	TotalWeightKg float64 `json:"totalWeight" yaml:"totalWeight" mapstructure:"totalWeight"`
}

// DefaultTargets returns the targets offered by the interactive front ends.
func DefaultTargets() NutrientTargets {
	return NutrientTargets{
		CPMin:         constants.DefaultCPMin,
		TDNMin:        constants.DefaultTDNMin,
		TotalWeightKg: constants.DefaultTotalWeightKg,
	}
}

// Validate reports an *InvalidModelError when a target is out of range.
func (t NutrientTargets) Validate() error {
	if t.CPMin < 0 || math.IsNaN(t.CPMin) {
		return invalidf("cpMin", t.CPMin, "minimum crude protein must be non-negative, got %v", t.CPMin)
	}
	if t.TDNMin < 0 || math.IsNaN(t.TDNMin) {
		return invalidf("tdnMin", t.TDNMin, "minimum total digestible nutrients must be non-negative, got %v", t.TDNMin)
	}
	if !(t.TotalWeightKg > 0) || math.IsInf(t.TotalWeightKg, 0) {
		return invalidf("totalWeight", t.TotalWeightKg, "total weight must be positive, got %v", t.TotalWeightKg)
	}
	return nil
}
