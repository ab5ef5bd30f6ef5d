// Package ingredients loads the feed ingredient catalog.
package ingredients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/feedmix/internal/formulation"
)

// Catalog column headers. Header cells are matched after trimming.
const (
	ColumnName  = "Ingredients"
	ColumnCP    = "CP %"
	ColumnTDN   = "TDN %"
	ColumnPrice = "Price (In Indonesia rupiah per kg)"

	// Delimiter separates catalog fields.
	Delimiter = ';'
)

// CatalogError reports a malformed catalog row or header.
type CatalogError struct {
	Line   int
	Column string
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("catalog line %d, column %q: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("catalog line %d: %v", e.Line, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// NotFoundError lists every requested name missing from the catalog.
type NotFoundError struct {
	Names []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ingredients not found in catalog: %s", strings.Join(e.Names, ", "))
}

// Catalog holds ingredients in file order.
type Catalog struct {
	items []formulation.Ingredient
	index map[string]int
}

// NewCatalog builds a catalog from already validated ingredients. Later
// entries replace earlier ones with the same name.
func NewCatalog(items ...formulation.Ingredient) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(items))}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ingredient catalog: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadCatalog(f)
}

// ReadCatalog parses a semicolon-delimited catalog with a header row.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CatalogError{Line: 1, Err: errors.New("catalog is empty")}
		}
		return nil, &CatalogError{Line: 1, Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, cell := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))] = i
	}
	pos := make(map[string]int, 4)
	for _, name := range []string{ColumnName, ColumnCP, ColumnTDN, ColumnPrice} {
		i, ok := columns[name]
		if !ok {
			return nil, &CatalogError{Line: 1, Column: name, Err: errors.New("missing column")}
		}
		pos[name] = i
	}

	catalog := &Catalog{index: make(map[string]int)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &CatalogError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, &CatalogError{Line: line + 1, Err: err}
		}
		line, _ = reader.FieldPos(0)
		if blank(record) {
			continue
		}

		field := func(column string) (string, error) {
			i := pos[column]
			if i >= len(record) {
				return "", &CatalogError{Line: line, Column: column, Err: errors.New("missing value")}
			}
			return strings.TrimSpace(record[i]), nil
		}

		name, err := field(ColumnName)
		if err != nil {
			return nil, err
		}
		cp, err := numericField(field, ColumnCP, line)
		if err != nil {
			return nil, err
		}
		tdn, err := numericField(field, ColumnTDN, line)
		if err != nil {
			return nil, err
		}
		priceText, err := field(ColumnPrice)
		if err != nil {
			return nil, err
		}
		price, err := parsePrice(priceText)
		if err != nil {
			return nil, &CatalogError{Line: line, Column: ColumnPrice, Err: err}
		}

		ing, err := formulation.NewIngredient(name, cp, tdn, price)
		if err != nil {
			return nil, &CatalogError{Line: line, Err: err}
		}
		if _, dup := catalog.index[strings.ToLower(ing.Name)]; dup {
			return nil, &CatalogError{Line: line, Column: ColumnName, Err: fmt.Errorf("duplicate ingredient %q", ing.Name)}
		}
		if err := catalog.Add(ing); err != nil {
			return nil, &CatalogError{Line: line, Err: err}
		}
	}

	return catalog, nil
}

func numericField(field func(string) (string, error), column string, line int) (float64, error) {
	text, err := field(column)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return 0, &CatalogError{Line: line, Column: column, Err: fmt.Errorf("not a number: %q", text)}
	}
	return v, nil
}

// parsePrice accepts whole amounts, optionally with "." or "," thousands
// separators, and rounds decimal amounts to the nearest unit.
func parsePrice(text string) (int64, error) {
	cleaned := strings.NewReplacer(" ", "", "_", "").Replace(text)
	if v, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return v, nil
	}
	if grouped := strings.NewReplacer(".", "", ",", "").Replace(cleaned); isGrouped(cleaned) {
		if v, err := strconv.ParseInt(grouped, 10, 64); err == nil {
			return v, nil
		}
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("price must be a finite non-negative amount, got %q", text)
	}
	return int64(math.Round(f)), nil
}

// isGrouped reports whether every separator in s is followed by exactly
// three digits, as in "8.000" or "12,500".
func isGrouped(s string) bool {
	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) < 2 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Add appends an ingredient, replacing an existing one with the same name.
func (c *Catalog) Add(ing formulation.Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	key := strings.ToLower(ing.Name)
	if i, ok := c.index[key]; ok {
		c.items[i] = ing
		return nil
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, ing)
	return nil
}

// Len is the number of ingredients.
func (c *Catalog) Len() int {
	return len(c.items)
}

// All returns a copy of the catalog in file order.
func (c *Catalog) All() []formulation.Ingredient {
	return append([]formulation.Ingredient(nil), c.items...)
}

// Names returns ingredient names in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, item := range c.items {
		names[i] = item.Name
	}
	return names
}

// Lookup finds an ingredient by case-insensitive name.
func (c *Catalog) Lookup(name string) (formulation.Ingredient, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return formulation.Ingredient{}, false
	}
	return c.items[i], true
}

// Select returns the named ingredients in request order. Every unknown
// name is reported in a single *NotFoundError.
func (c *Catalog) Select(names []string) ([]formulation.Ingredient, error) {
	selected := make([]formulation.Ingredient, 0, len(names))
	var missing []string
	for _, name := range names {
		ing, ok := c.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected = append(selected, ing)
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Names: missing}
	}
	return selected, nil
}

// SelectIndices resolves 1-based positions as shown by a numbered listing.
func (c *Catalog) SelectIndices(indices []int) ([]formulation.Ingredient, error) {
	selected := make([]formulation.Ingredient, 0, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > len(c.items) {
			return nil, fmt.Errorf("numbers must be between 1 and %d, got %d", len(c.items), idx)
		}
		selected = append(selected, c.items[idx-1])
	}
	return selected, nil
}
