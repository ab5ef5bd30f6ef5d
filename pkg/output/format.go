// Package output provides utilities for formatting and exporting formulation results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ration"
	"github.com/iwvelando/feedmix/pkg/constants"
	"github.com/iwvelando/feedmix/pkg/format"
	"github.com/iwvelando/feedmix/pkg/mathutil"
	"github.com/iwvelando/feedmix/pkg/validation"
)

const ruleWidth = 55

// CSV export header.
var csvHeader = []string{"Ingredient", "Weight (kg)", "Price/kg", "Cost"}

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func displayWeight(kg float64) float64 {
	if mathutil.IsZero(kg) {
		return 0
	}
	return kg
}

// PrettyFormat writes a human-readable rather than machine-readable table
// for every outcome, failed ones included.
func PrettyFormat(w io.Writer, outcomes []ration.Outcome) error {
	p := printer()
	for i, outcome := range outcomes {
		var b strings.Builder
		fmt.Fprintf(&b, "--- Results for ration %s ---\n", outcome.Name)
		if !outcome.Succeeded() {
			fmt.Fprintf(&b, "No formulation: %v\n", outcome.Err)
		} else {
			result := outcome.Result
			fmt.Fprintf(&b, "%-20s | %12s | %7s | %10s | %12s\n", "Ingredient", "Weight (kg)", "Share", "Price/kg", "Cost")
			fmt.Fprintf(&b, "%-20s | %12s | %7s | %10s | %12s\n", "__________", "___________", "_____", "________", "____")
			for _, line := range result.Lines {
				share := mathutil.CalculatePercentage(line.WeightKg, result.TotalWeightKg)
				p.Fprintf(&b, "%-20s | %12.4f | %6.2f%% | %10d | %12.0f\n",
					line.Ingredient.Name, displayWeight(line.WeightKg), share, line.Ingredient.Price, line.Cost)
			}
			fmt.Fprintf(&b, "Total: %s, %s (CP %.2f%%, TDN %.2f%%, solver %s)\n",
				format.Weight(result.TotalWeightKg), format.Currency(result.TotalCost), result.CP, result.TDN, result.Method)
		}
		if i < len(outcomes)-1 {
			b.WriteString("\n")
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// TxtFormat writes the plain-text report of one formulation.
func TxtFormat(w io.Writer, result *formulation.Result) error {
	if result == nil {
		return fmt.Errorf("no formulation to export")
	}
	p := printer()
	rule := strings.Repeat("-", ruleWidth) + "\n"

	var b strings.Builder
	b.WriteString("Optimal Feed Mix:\n\n")
	fmt.Fprintf(&b, "%-20s %12s %10s %10s\n", "Ingredient", "Weight (kg)", "Price/kg", "Cost")
	b.WriteString(rule)
	for _, line := range result.Lines {
		fmt.Fprintf(&b, "%-20s %12.4f %s %s\n",
			line.Ingredient.Name, displayWeight(line.WeightKg),
			p.Sprintf("%10d", line.Ingredient.Price), p.Sprintf("%10.0f", line.Cost))
	}
	b.WriteString(rule)
	fmt.Fprintf(&b, "%-42s %s %s\n", "Total Cost", p.Sprintf("%10.0f", result.TotalCost), constants.CurrencyName)

	_, err := io.WriteString(w, b.String())
	return err
}

// CsvFormat writes one formulation as comma-separated values with a
// trailing total row.
func CsvFormat(w io.Writer, result *formulation.Result) error {
	if result == nil {
		return fmt.Errorf("no formulation to export")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, line := range result.Lines {
		record := []string{
			line.Ingredient.Name,
			strconv.FormatFloat(displayWeight(line.WeightKg), 'f', constants.WeightPrecision, 64),
			strconv.FormatInt(line.Ingredient.Price, 10),
			strconv.FormatInt(mathutil.TruncateCurrency(line.Cost), 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	total := fmt.Sprintf("%d %s", mathutil.TruncateCurrency(result.TotalCost), constants.CurrencyName)
	if err := writer.Write([]string{"", "", "Total Cost", total}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// PrettyString returns PrettyFormat output as a string.
func PrettyString(outcomes []ration.Outcome) string {
	var buf bytes.Buffer
	_ = PrettyFormat(&buf, outcomes)
	return buf.String()
}

// TxtString returns TxtFormat output as a string.
func TxtString(result *formulation.Result) (string, error) {
	var buf bytes.Buffer
	if err := TxtFormat(&buf, result); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CsvString returns CsvFormat output as a string.
func CsvString(result *formulation.Result) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, result); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Export writes one formulation in the csv or txt format.
func Export(w io.Writer, outputFormat string, result *formulation.Result) error {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatTXT:
		return TxtFormat(w, result)
	default:
		return fmt.Errorf("expected export format of %s or %s, got %s",
			constants.OutputFormatCSV, constants.OutputFormatTXT, outputFormat)
	}
}

// Write renders outcomes in the given format. The csv and txt formats emit
// each successful outcome in order, separated by a blank line; failed
// outcomes are left to the caller's logs.
func Write(w io.Writer, outputFormat string, outcomes []ration.Outcome) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	if outputFormat == constants.OutputFormatPretty {
		return PrettyFormat(w, outcomes)
	}

	first := true
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			continue
		}
		if !first {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		first = false
		if err := Export(w, outputFormat, outcome.Result); err != nil {
			return fmt.Errorf("ration %q: %w", outcome.Name, err)
		}
	}
	return nil
}

// FormatForPath infers the export format from a file extension.
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return constants.OutputFormatCSV, nil
	case ".txt":
		return constants.OutputFormatTXT, nil
	default:
		return "", fmt.Errorf("cannot infer export format from %q; use a .csv or .txt extension", path)
	}
}

// WriteFile exports one formulation to path. An empty format is inferred
// from the extension.
func WriteFile(path, outputFormat string, result *formulation.Result) error {
	if outputFormat == "" {
		inferred, err := FormatForPath(path)
		if err != nil {
			return err
		}
		outputFormat = inferred
	}

	var buf bytes.Buffer
	if err := Export(&buf, outputFormat, result); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
