/*
Package nutrition is the read-only food composition reference used to ground
generated diet plans in real nutrient values. Records follow the IFCT layout:
one row per unique food code with per-100g nutrient columns.
*/
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable means the backing dataset could not be opened or verified.
	ErrStoreUnavailable = errors.New("nutrition store unavailable")

	// ErrInvalidNutrientKey is returned when a range query names an unknown nutrient column.
	ErrInvalidNutrientKey = errors.New("invalid nutrient key")
)

// Record is one food composition entry. Nutrient values are per 100g of edible portion.
type Record struct {
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	ScientificName string             `json:"scientific_name,omitempty"`
	Category       string             `json:"category,omitempty"`
	Nutrients      map[string]float64 `json:"nutrients"`
}

// Clone returns a deep copy so cached records cannot be mutated through a result.
func (r Record) Clone() Record {
	out := r
	if r.Nutrients != nil {
		out.Nutrients = make(map[string]float64, len(r.Nutrients))
		for k, v := range r.Nutrients {
			out.Nutrients[k] = v
		}
	}
	return out
}

// Store is the lookup contract shared by every backend.
// Implementations never mutate the dataset and are safe for concurrent use.
type Store interface {
	// FindByName does a case-insensitive substring match on the name, in insertion order.
	FindByName(ctx context.Context, query string) ([]Record, error)

	// FindByNutrientRange returns records whose nutrient lies in [min, max].
	FindByNutrientRange(ctx context.Context, nutrientKey string, min, max float64) ([]Record, error)

	// FindByCode is an exact, case-sensitive lookup on the unique food code.
	FindByCode(ctx context.Context, code string) (Record, bool, error)

	// Close releases the underlying handle. Calling it more than once is safe.
	Close() error
}

// Nutrient column names, in the order they appear in the dataset.
const (
	EnergyKcal    = "energy_kcal"
	ProteinG      = "protein_g"
	FatG          = "fat_g"
	CarbohydrateG = "carbohydrate_g"
	FibreG        = "fibre_g"
	CalciumMg     = "calcium_mg"
	IronMg        = "iron_mg"
	VitaminCMg    = "vitamin_c_mg"
	SodiumMg      = "sodium_mg"
	PotassiumMg   = "potassium_mg"
)

// NutrientKeys lists every recognized nutrient column.
var NutrientKeys = []string{
	EnergyKcal, ProteinG, FatG, CarbohydrateG, FibreG,
	CalciumMg, IronMg, VitaminCMg, SodiumMg, PotassiumMg,
}

// nutrientAliases maps the short names used by callers onto dataset columns.
var nutrientAliases = map[string]string{
	"energy":       EnergyKcal,
	"calories":     EnergyKcal,
	"protein":      ProteinG,
	"fat":          FatG,
	"carbohydrate": CarbohydrateG,
	"carbs":        CarbohydrateG,
	"fibre":        FibreG,
	"fiber":        FibreG,
	"calcium":      CalciumMg,
	"iron":         IronMg,
	"vitamin_c":    VitaminCMg,
	"sodium":       SodiumMg,
	"potassium":    PotassiumMg,
}

// ResolveNutrientKey maps a caller-supplied key to its column name.
func ResolveNutrientKey(key string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, col := range NutrientKeys {
		if k == col {
			return col, nil
		}
	}
	if col, ok := nutrientAliases[k]; ok {
		return col, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNutrientKey, key)
}

// FormatNutrients renders the non-empty nutrient values as a compact one-line summary.
func FormatNutrients(r Record) string {
	parts := make([]string, 0, len(NutrientKeys))
	for _, key := range NutrientKeys {
		if v, ok := r.Nutrients[key]; ok {
			parts = append(parts, fmt.Sprintf("%s %.1f", key, v))
		}
	}
	if len(parts) == 0 {
		return "no nutrient data"
	}
	return strings.Join(parts, ", ")
}

// escapeLike escapes LIKE wildcards so a query is matched literally.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}
