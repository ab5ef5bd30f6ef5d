package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/feedmix/internal/config"
	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
	"github.com/iwvelando/feedmix/internal/ration"
	"github.com/iwvelando/feedmix/internal/server"
	"github.com/iwvelando/feedmix/internal/solver"
	"github.com/iwvelando/feedmix/pkg/constants"
	"github.com/iwvelando/feedmix/pkg/output"
	"github.com/iwvelando/feedmix/pkg/testutil"
)

const testConfigPath = "../test_config.yaml"

// runTestConfig loads the shared config and formulates every active ration
// exactly as the formulate command does.
func runTestConfig(t *testing.T) (*config.Configuration, []ration.Outcome) {
	t.Helper()
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	catalog, err := conf.LoadCatalog(logger)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	s, err := solver.New(conf.Solver.Method)
	if err != nil {
		t.Fatalf("solver.New() error = %v", err)
	}

	outcomes, err := ration.Run(context.Background(), logger, conf, catalog, s)
	if err != nil {
		t.Fatalf("ration.Run() error = %v", err)
	}
	return conf, outcomes
}

// TestMainIntegrationBaseline formulates the shared config end to end and
// checks every returned blend against its ration's constraints.
func TestMainIntegrationBaseline(t *testing.T) {
	conf, outcomes := runTestConfig(t)

	expected := []string{"dairy cow", "beef fattening", "heifer", "high protein"}
	if len(outcomes) != len(expected) {
		t.Fatalf("Expected %d outcomes, got %d", len(expected), len(outcomes))
	}
	for i, name := range expected {
		if outcomes[i].Name != name {
			t.Errorf("Expected outcome %d to be %s, got %s", i, name, outcomes[i].Name)
		}
	}

	for _, outcome := range outcomes[:3] {
		if !outcome.Succeeded() {
			t.Fatalf("Ration %s failed: %v", outcome.Name, outcome.Err)
		}
		r, ok := conf.FindRation(outcome.Name)
		if !ok {
			t.Fatalf("Ration %s missing from config", outcome.Name)
		}
		validateBlend(t, outcome, r.Targets)
	}

	var infeasible *formulation.InfeasibleTargetError
	if !errors.As(outcomes[3].Err, &infeasible) {
		t.Fatalf("Expected high protein to be infeasible, got %v", outcomes[3].Err)
	}
	if infeasible.Best != "Elephant Grass" || infeasible.Achievable != 8.5 {
		t.Errorf("Expected best CP of 8.5 from Elephant Grass, got %v from %s", infeasible.Achievable, infeasible.Best)
	}
}

// validateBlend checks weight total, batch nutrient minimums and bounds.
func validateBlend(t *testing.T, outcome ration.Outcome, targets formulation.NutrientTargets) {
	t.Helper()
	result := outcome.Result
	policy := outcome.Request.Bounds
	lower := policy.Lower(targets.TotalWeightKg)
	upper := policy.Upper(targets.TotalWeightKg)

	sum := 0.0
	cost := 0.0
	for _, line := range result.Lines {
		sum += line.WeightKg
		cost += line.WeightKg * float64(line.Ingredient.Price)
		if line.WeightKg < lower-1e-6 {
			t.Errorf("%s: %s weight %v below lower bound %v", outcome.Name, line.Ingredient.Name, line.WeightKg, lower)
		}
		if line.WeightKg > upper+1e-6 {
			t.Errorf("%s: %s weight %v above upper bound %v", outcome.Name, line.Ingredient.Name, line.WeightKg, upper)
		}
	}

	if math.Abs(sum-targets.TotalWeightKg) > 1e-6*math.Max(1, targets.TotalWeightKg) {
		t.Errorf("%s: weights sum to %v, expected %v", outcome.Name, sum, targets.TotalWeightKg)
	}
	if math.Abs(cost-result.TotalCost) > 1e-6*math.Max(1, cost) {
		t.Errorf("%s: total cost %v does not match line costs %v", outcome.Name, result.TotalCost, cost)
	}
	cp, tdn := result.Supplied()
	if cp < targets.CPMin-1e-6 {
		t.Errorf("%s: batch CP %v below minimum %v", outcome.Name, cp, targets.CPMin)
	}
	if tdn < targets.TDNMin-1e-6 {
		t.Errorf("%s: batch TDN %v below minimum %v", outcome.Name, tdn, targets.TDNMin)
	}
}

// TestTofuWasteDominatesBeefRation checks that the cheapest source of both
// nutrients carries the largest share of the beef blend.
func TestTofuWasteDominatesBeefRation(t *testing.T) {
	_, outcomes := runTestConfig(t)

	beef := testutil.FindOutcome(outcomes, "beef fattening")
	if beef == nil || !beef.Succeeded() {
		t.Fatalf("Expected beef fattening to succeed")
	}

	tofu, ok := beef.Result.Weight("Tofu Waste")
	if !ok {
		t.Fatalf("Expected Tofu Waste in the blend")
	}
	for _, line := range beef.Result.Lines {
		if line.Ingredient.Name != "Tofu Waste" && line.WeightKg > tofu {
			t.Errorf("Expected Tofu Waste to dominate, %s has %v kg vs %v kg", line.Ingredient.Name, line.WeightKg, tofu)
		}
	}
}

// TestOutputFormats renders the shared config in every output format
func TestOutputFormats(t *testing.T) {
	_, outcomes := runTestConfig(t)

	tests := []struct {
		format   string
		contains []string
	}{
		{constants.OutputFormatPretty, []string{"--- Results for ration dairy cow ---", "No formulation", "Rp "}},
		{constants.OutputFormatCSV, []string{"Ingredient,Weight (kg),Price/kg,Cost", ",,Total Cost,", "Rupiah"}},
		{constants.OutputFormatTXT, []string{"Optimal Feed Mix:", strings.Repeat("-", 55), "Total Cost"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := output.Write(&buf, tt.format, outcomes); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%s output missing %q", tt.format, want)
				}
			}
		})
	}

	var buf bytes.Buffer
	if err := output.Write(&buf, constants.OutputFormatCSV, outcomes); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := strings.Count(buf.String(), "Ingredient,Weight (kg)"); got != 3 {
		t.Errorf("Expected 3 CSV sections for the successful rations, got %d", got)
	}
}

// TestConfigurationValidation checks the warnings raised for the shared config
func TestConfigurationValidation(t *testing.T) {
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	warnings := conf.ValidateConfiguration()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "goat") {
		t.Errorf("Expected inactive ration warning, got %q", warnings[0])
	}
}

// TestDataConsistency validates that multiple runs produce identical results
func TestDataConsistency(t *testing.T) {
	_, first := runTestConfig(t)
	_, second := runTestConfig(t)

	for i := range first {
		a, b := first[i], second[i]
		if a.Succeeded() != b.Succeeded() {
			t.Fatalf("Ration %s changed outcome between runs", a.Name)
		}
		if !a.Succeeded() {
			continue
		}
		for j := range a.Result.Lines {
			if a.Result.Lines[j].WeightKg != b.Result.Lines[j].WeightKg {
				t.Errorf("Ration %s: %s weight changed between runs (%v vs %v)",
					a.Name, a.Result.Lines[j].Ingredient.Name, a.Result.Lines[j].WeightKg, b.Result.Lines[j].WeightKg)
			}
		}
	}
}

// TestHTTPMatchesLibrary serves the bundled catalog and checks that the API
// returns the same blend as the library pipeline.
func TestHTTPMatchesLibrary(t *testing.T) {
	conf, outcomes := runTestConfig(t)
	catalog, err := conf.LoadCatalog(nil)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	srv := httptest.NewServer(server.NewHandler(zap.NewNop(), server.DefaultConfig(), catalog, "integration"))
	defer srv.Close()

	dairy, _ := conf.FindRation("dairy cow")
	body, err := json.Marshal(map[string]interface{}{
		"ingredients": dairy.Ingredients,
		"targets":     dairy.Targets,
		"bounds":      dairy.Bounds,
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	resp, err := http.Post(srv.URL+"/api/formulate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/formulate error = %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var got struct {
		TotalCost float64 `json:"totalCost"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := testutil.FindOutcome(outcomes, "dairy cow")
	if math.Abs(got.TotalCost-want.Result.TotalCost) > 1e-6 {
		t.Errorf("API cost %v differs from library cost %v", got.TotalCost, want.Result.TotalCost)
	}
}

// TestBundledCatalogCeilings guards the bundled catalog values the example
// rations depend on.
func TestBundledCatalogCeilings(t *testing.T) {
	catalog, err := ingredients.LoadCatalog("../../data/ingredients.csv")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	report, err := formulation.Ceilings(catalog.All())
	if err != nil {
		t.Fatalf("Ceilings() error = %v", err)
	}
	if report.MaxCPFrom != "Fish Meal" || report.MaxCP != 55 {
		t.Errorf("Expected max CP 55 from Fish Meal, got %v from %s", report.MaxCP, report.MaxCPFrom)
	}
	if report.MaxTDN != 80 {
		t.Errorf("Expected max TDN 80, got %v", report.MaxTDN)
	}
}
