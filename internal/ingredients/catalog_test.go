package ingredients

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/feedmix/internal/formulation"
)

const header = "Ingredients;CP %;TDN %;Price (In Indonesia rupiah per kg)\n"

func TestReadCatalog(t *testing.T) {
	input := "\ufeff" + header +
		"Elephant Grass;8.5;52;500\n" +
		"\n" +
		"Soybean Meal; 44 ; 77 ;8.000\n" +
		"Rice Bran;12,5;70;2999.6\n"

	catalog, err := ReadCatalog(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.Len())
	assert.Equal(t, []string{"Elephant Grass", "Soybean Meal", "Rice Bran"}, catalog.Names())

	meal, ok := catalog.Lookup("soybean meal")
	require.True(t, ok)
	assert.Equal(t, formulation.Ingredient{Name: "Soybean Meal", CP: 44, TDN: 77, Price: 8000}, meal)

	bran, ok := catalog.Lookup("Rice Bran")
	require.True(t, ok)
	assert.Equal(t, 12.5, bran.CP)
	assert.Equal(t, int64(3000), bran.Price)
}

func TestReadCatalogColumnOrder(t *testing.T) {
	input := "Price (In Indonesia rupiah per kg);TDN %;Ingredients;CP %\n1500;79;Tofu Waste;23\n"

	catalog, err := ReadCatalog(strings.NewReader(input))
	require.NoError(t, err)

	tofu, ok := catalog.Lookup("Tofu Waste")
	require.True(t, ok)
	assert.Equal(t, 23.0, tofu.CP)
	assert.Equal(t, 79.0, tofu.TDN)
	assert.Equal(t, int64(1500), tofu.Price)
}

func TestReadCatalogErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column string
	}{
		{"empty", "", 1, ""},
		{"missing price column", "Ingredients;CP %;TDN %\nCorn;9;80\n", 1, ColumnPrice},
		{"non-numeric protein", header + "Corn;nine;80;5500\n", 2, ColumnCP},
		{"non-numeric price", header + "Corn;9;80;cheap\n", 2, ColumnPrice},
		{"short row", header + "Corn;9\n", 2, ColumnTDN},
		{"duplicate", header + "Corn;9;80;5500\ncorn;9;80;5400\n", 3, ColumnName},
		{"negative price", header + "Corn;9;80;-1\n", 2, ""},
		{"negative fractional price", header + "Corn;9;80;-0.4\n", 2, ColumnPrice},
		{"infinite price", header + "Corn;9;80;Inf\n", 2, ColumnPrice},
		{"nan price", header + "Corn;9;80;NaN\n", 2, ColumnPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := ReadCatalog(strings.NewReader(tt.input))
			assert.Nil(t, catalog)

			var catalogErr *CatalogError
			require.ErrorAs(t, err, &catalogErr)
			assert.Equal(t, tt.line, catalogErr.Line)
			assert.Equal(t, tt.column, catalogErr.Column)
		})
	}
}

func TestReadCatalogWrapsValidation(t *testing.T) {
	_, err := ReadCatalog(strings.NewReader(header + ";9;80;100\n"))

	var invalid *formulation.InvalidModelError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "name", invalid.Field)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"500", 500},
		{"8.000", 8000},
		{"12,500", 12500},
		{"1.250.000", 1250000},
		{"2999.6", 3000},
		{"45,5", 46},
		{" 3 000 ", 3000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, in := range []string{"", "-0.4", "-2,5", "NaN", "+Inf", "1e300"} {
		_, err := parsePrice(in)
		assert.Error(t, err, in)
	}
}

func TestSelect(t *testing.T) {
	catalog, err := NewCatalog(
		formulation.Ingredient{Name: "Grass", CP: 8, TDN: 55, Price: 500},
		formulation.Ingredient{Name: "Meal", CP: 45, TDN: 80, Price: 8000},
		formulation.Ingredient{Name: "Corn", CP: 9, TDN: 80, Price: 5500},
	)
	require.NoError(t, err)

	selected, err := catalog.Select([]string{"corn", "Grass"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "Corn", selected[0].Name)
	assert.Equal(t, "Grass", selected[1].Name)

	_, err = catalog.Select([]string{"Grass", "Barley", "Oats"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"Barley", "Oats"}, notFound.Names)

	selected, err = catalog.SelectIndices([]int{3, 1})
	require.NoError(t, err)
	assert.Equal(t, "Corn", selected[0].Name)
	assert.Equal(t, "Grass", selected[1].Name)

	_, err = catalog.SelectIndices([]int{0})
	assert.Error(t, err)
	_, err = catalog.SelectIndices([]int{4})
	assert.Error(t, err)
}

func TestAddReplacesByName(t *testing.T) {
	catalog, err := NewCatalog(formulation.Ingredient{Name: "Corn", CP: 9, TDN: 80, Price: 5500})
	require.NoError(t, err)

	require.NoError(t, catalog.Add(formulation.Ingredient{Name: "CORN", CP: 9, TDN: 80, Price: 6000}))
	assert.Equal(t, 1, catalog.Len())
	corn, _ := catalog.Lookup("corn")
	assert.Equal(t, int64(6000), corn.Price)

	assert.Error(t, catalog.Add(formulation.Ingredient{Name: "Bad", Price: -5}))
}

func TestLoadBundledCatalog(t *testing.T) {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	path := filepath.Join(filepath.Dir(file), "..", "..", "data", "ingredients.csv")

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, catalog.Len(), 3)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
