package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/feedmix/internal/config"
	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ration"
	"github.com/iwvelando/feedmix/internal/solver"
)

// TestPerformance tests performance characteristics
func TestPerformance(t *testing.T) {
	logger := zap.NewNop()

	start := time.Now()
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	loadTime := time.Since(start)

	start = time.Now()
	catalog, err := conf.LoadCatalog(logger)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	catalogTime := time.Since(start)

	s, err := solver.New(conf.Solver.Method)
	if err != nil {
		t.Fatalf("solver.New failed: %v", err)
	}

	start = time.Now()
	outcomes, err := ration.Run(context.Background(), logger, conf, catalog, s)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	formulateTime := time.Since(start)

	totalTime := loadTime + catalogTime + formulateTime

	t.Logf("Performance metrics:")
	t.Logf("  Load config: %v", loadTime)
	t.Logf("  Load catalog: %v", catalogTime)
	t.Logf("  Formulate rations: %v", formulateTime)
	t.Logf("  Total time: %v", totalTime)

	if totalTime > 5*time.Second {
		t.Errorf("Total processing time %v exceeds 5 second threshold", totalTime)
	}
	if len(outcomes) != 4 {
		t.Errorf("Expected 4 outcomes, got %d", len(outcomes))
	}
}

// TestManyRations formulates a large batch built from the whole catalog
func TestManyRations(t *testing.T) {
	logger := zap.NewNop()

	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	catalog, err := conf.LoadCatalog(logger)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	names := catalog.Names()
	rations := make([]config.Ration, 0, 200)
	for i := 0; i < 200; i++ {
		rations = append(rations, config.Ration{
			Name:        fmt.Sprintf("batch-%03d", i),
			Active:      true,
			Ingredients: names,
			Targets: formulation.NutrientTargets{
				CPMin:         10 + float64(i%8),
				TDNMin:        60 + float64(i%10),
				TotalWeightKg: float64(1 + i%50),
			},
			Bounds: config.BoundsConfig{Preset: formulation.PresetCapped},
		})
	}

	s, err := solver.New(conf.Solver.Method)
	if err != nil {
		t.Fatalf("solver.New failed: %v", err)
	}

	start := time.Now()
	outcomes, err := ration.RunRations(context.Background(), logger, rations, catalog, s)
	if err != nil {
		t.Fatalf("RunRations failed: %v", err)
	}
	elapsed := time.Since(start)
	t.Logf("Formulated %d rations in %v", len(outcomes), elapsed)

	for i, outcome := range outcomes {
		if outcome.Name != rations[i].Name {
			t.Fatalf("Outcome %d is %s, expected %s", i, outcome.Name, rations[i].Name)
		}
		if !outcome.Succeeded() {
			t.Errorf("Ration %s failed: %v", outcome.Name, outcome.Err)
			continue
		}
		validateBlend(t, outcome, rations[i].Targets)
	}

	if elapsed > 10*time.Second {
		t.Errorf("Batch took %v, exceeds 10 second threshold", elapsed)
	}
}

// TestMemoryUsage performs basic repeated-run validation
func TestMemoryUsage(t *testing.T) {
	for i := 0; i < 10; i++ {
		_, outcomes := runTestConfig(t)
		if len(outcomes) == 0 {
			t.Fatalf("No outcomes on iteration %d", i)
		}
	}

	t.Log("Successfully completed 10 iterations without memory issues")
}

func BenchmarkFormulate(b *testing.B) {
	conf, err := config.LoadConfiguration(testConfigPath)
	if err != nil {
		b.Fatalf("LoadConfiguration failed: %v", err)
	}
	catalog, err := conf.LoadCatalog(nil)
	if err != nil {
		b.Fatalf("LoadCatalog failed: %v", err)
	}
	dairy, _ := conf.FindRation("dairy cow")
	req, err := dairy.Request(catalog)
	if err != nil {
		b.Fatalf("Request failed: %v", err)
	}
	s, err := solver.New(conf.Solver.Method)
	if err != nil {
		b.Fatalf("solver.New failed: %v", err)
	}
	f, err := formulation.NewFormulator(zap.NewNop(), s)
	if err != nil {
		b.Fatalf("NewFormulator failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.Formulate(req); err != nil {
			b.Fatalf("Formulate failed: %v", err)
		}
	}
}
