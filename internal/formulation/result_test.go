package formulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpret(t *testing.T) {
	solution := Solution{
		Method:  "test",
		Success: true,
		Columns: []string{"Grass", "Meal"},
		Weights: []float64{0.4, 0.6},
	}

	result, err := Interpret(grassAndMeal(), solution)
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, "Grass", result.Lines[0].Ingredient.Name)
	assert.InDelta(t, 200.0, result.Lines[0].Cost, 1e-9)
	assert.InDelta(t, 4800.0, result.Lines[1].Cost, 1e-9)
	assert.InDelta(t, 5000.0, result.TotalCost, 1e-9)
	assert.InDelta(t, 1.0, result.TotalWeightKg, 1e-12)
	assert.InDelta(t, 30.2, result.CP, 1e-9)
	assert.InDelta(t, 70.0, result.TDN, 1e-9)
	assert.Equal(t, "test", result.Method)

	w, ok := result.Weight("meal")
	assert.True(t, ok)
	assert.Equal(t, 0.6, w)
	_, ok = result.Weight("Corn")
	assert.False(t, ok)
	assert.Equal(t, map[string]float64{"Grass": 0.4, "Meal": 0.6}, result.Weights())
}

func TestSuppliedIsBatchSum(t *testing.T) {
	result, err := Interpret(grassAndMeal(), Solution{Success: true, Weights: []float64{2, 3}})
	require.NoError(t, err)

	cp, tdn := result.Supplied()
	assert.InDelta(t, 8*2+45*3.0, cp, 1e-9)
	assert.InDelta(t, 55*2+80*3.0, tdn, 1e-9)
	assert.InDelta(t, cp/5, result.CP, 1e-9)
	assert.InDelta(t, tdn/5, result.TDN, 1e-9)
}

func TestInterpretMismatch(t *testing.T) {
	tests := []struct {
		name     string
		solution Solution
	}{
		{"too few weights", Solution{Success: true, Weights: []float64{1}}},
		{"too many weights", Solution{Success: true, Weights: []float64{0.2, 0.3, 0.5}}},
		{"columns reordered", Solution{Success: true, Columns: []string{"Meal", "Grass"}, Weights: []float64{0.6, 0.4}}},
		{"columns short", Solution{Success: true, Columns: []string{"Grass"}, Weights: []float64{0.4, 0.6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Interpret(grassAndMeal(), tt.solution)
			assert.Nil(t, result)
			var mismatch *MismatchedLengthError
			require.ErrorAs(t, err, &mismatch)
			assert.False(t, IsRecoverable(err))
		})
	}
}

func TestInterpretRejectsFailedSolution(t *testing.T) {
	result, err := Interpret(grassAndMeal(), Failed("test", "model is infeasible"))
	assert.Nil(t, result)

	var failure *SolverFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "model is infeasible", failure.Message)
}
