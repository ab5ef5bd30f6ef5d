package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ration"
)

func sp(n int) string {
	return strings.Repeat(" ", n)
}

func sampleResult() *formulation.Result {
	return &formulation.Result{
		Method: "simplex",
		Lines: []formulation.Line{
			{Ingredient: formulation.Ingredient{Name: "Grass", CP: 8, TDN: 55, Price: 500}, WeightKg: 0.4, Cost: 200},
			{Ingredient: formulation.Ingredient{Name: "Meal", CP: 45, TDN: 80, Price: 8000}, WeightKg: 0.6, Cost: 4800},
		},
		TotalCost:     5000,
		TotalWeightKg: 1,
		CP:            30.2,
		TDN:           70,
	}
}

func TestTxtFormat(t *testing.T) {
	got, err := TxtString(sampleResult())
	require.NoError(t, err)

	rule := strings.Repeat("-", 55)
	want := "Optimal Feed Mix:\n\n" +
		"Ingredient" + sp(12) + "Weight (kg)" + sp(3) + "Price/kg" + sp(7) + "Cost\n" +
		rule + "\n" +
		"Grass" + sp(22) + "0.4000" + sp(8) + "500" + sp(8) + "200\n" +
		"Meal" + sp(23) + "0.6000" + sp(6) + "8,000" + sp(6) + "4,800\n" +
		rule + "\n" +
		"Total Cost" + sp(38) + "5,000 Rupiah\n"
	assert.Equal(t, want, got)

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	for _, line := range lines[2:6] {
		assert.Len(t, line, 55)
	}
}

func TestCsvFormat(t *testing.T) {
	got, err := CsvString(sampleResult())
	require.NoError(t, err)

	want := "Ingredient,Weight (kg),Price/kg,Cost\n" +
		"Grass,0.4000,500,200\n" +
		"Meal,0.6000,8000,4800\n" +
		",,Total Cost,5000 Rupiah\n"
	assert.Equal(t, want, got)
}

func TestCsvFormatTruncatesAndQuotes(t *testing.T) {
	result := &formulation.Result{
		Lines: []formulation.Line{
			{Ingredient: formulation.Ingredient{Name: "Bran, fine", Price: 3000}, WeightKg: 0.33333, Cost: 999.99},
			{Ingredient: formulation.Ingredient{Name: "Corn", Price: 5500}, WeightKg: -1e-12, Cost: 0},
		},
		TotalCost: 999.99,
	}

	got, err := CsvString(result)
	require.NoError(t, err)
	assert.Contains(t, got, "\"Bran, fine\",0.3333,3000,999\n")
	assert.Contains(t, got, "Corn,0.0000,5500,0\n")
	assert.Contains(t, got, ",,Total Cost,999 Rupiah\n")
}

func TestExportNilResult(t *testing.T) {
	_, err := CsvString(nil)
	assert.Error(t, err)
	_, err = TxtString(nil)
	assert.Error(t, err)
	assert.Error(t, Export(&bytes.Buffer{}, "pretty", sampleResult()))
}

func TestPrettyFormat(t *testing.T) {
	outcomes := []ration.Outcome{
		{Name: "Dairy", Result: sampleResult()},
		{Name: "Beef", Err: errors.New("CP target 50.00% exceeds the best ingredient")},
	}

	output := PrettyString(outcomes)

	assert.Contains(t, output, "--- Results for ration Dairy ---")
	assert.Contains(t, output, "Ingredient           |  Weight (kg) |   Share |   Price/kg |         Cost")
	assert.Contains(t, output, "|  60.00% |")
	assert.Contains(t, output, "8,000")
	assert.Contains(t, output, "4,800")
	assert.Contains(t, output, "Total: 1.0000 kg, Rp 5,000 (CP 30.20%, TDN 70.00%, solver simplex)")
	assert.Contains(t, output, "--- Results for ration Beef ---\nNo formulation: CP target 50.00%")
	assert.Equal(t, 1, strings.Count(output, "\n\n"))
}

// limitedWriter accepts a fixed number of writes and then fails.
type limitedWriter struct {
	writes int
	buf    bytes.Buffer
}

var errWriteLimit = errors.New("write limit reached")

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.writes == 0 {
		return 0, errWriteLimit
	}
	l.writes--
	return l.buf.Write(p)
}

func TestPrettyFormatReportsWriteErrors(t *testing.T) {
	outcomes := []ration.Outcome{
		{Name: "Dairy", Result: sampleResult()},
		{Name: "Heifer", Result: sampleResult()},
	}

	for writes := 0; writes < len(outcomes); writes++ {
		w := &limitedWriter{writes: writes}
		err := PrettyFormat(w, outcomes)
		assert.ErrorIs(t, err, errWriteLimit, "after %d writes", writes)
	}

	w := &limitedWriter{writes: len(outcomes)}
	require.NoError(t, PrettyFormat(w, outcomes))
	assert.Equal(t, PrettyString(outcomes), w.buf.String())
}

func TestPrettyFormatEmptyResults(t *testing.T) {
	assert.Equal(t, "", PrettyString(nil))
}

func TestWrite(t *testing.T) {
	outcomes := []ration.Outcome{
		{Name: "Dairy", Result: sampleResult()},
		{Name: "Beef", Err: errors.New("infeasible")},
		{Name: "Heifer", Result: sampleResult()},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "csv", outcomes))
	assert.Equal(t, 2, strings.Count(buf.String(), "Ingredient,Weight (kg),Price/kg,Cost"))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n\n"))

	buf.Reset()
	require.NoError(t, Write(&buf, "txt", outcomes))
	assert.Equal(t, 2, strings.Count(buf.String(), "Optimal Feed Mix:"))

	buf.Reset()
	require.NoError(t, Write(&buf, "pretty", outcomes))
	assert.Contains(t, buf.String(), "No formulation: infeasible")

	assert.Error(t, Write(&buf, "xml", outcomes))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "mix.csv")
	require.NoError(t, WriteFile(csvPath, "", sampleResult()))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Ingredient,Weight (kg)"))

	txtPath := filepath.Join(dir, "mix.TXT")
	require.NoError(t, WriteFile(txtPath, "", sampleResult()))
	data, err = os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Optimal Feed Mix:"))

	forced := filepath.Join(dir, "report.out")
	require.NoError(t, WriteFile(forced, "txt", sampleResult()))

	assert.Error(t, WriteFile(filepath.Join(dir, "mix.json"), "", sampleResult()))
	assert.Error(t, WriteFile(filepath.Join(dir, "missing", "mix.csv"), "", sampleResult()))
}
