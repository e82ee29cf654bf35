package nutrition

import (
	"database/sql"
	"strings"
)

// selectColumns is the projection shared by every backend. Nullable text
// columns are coalesced; nullable nutrients are scanned as sql.NullFloat64.
var selectColumns = "code, name, COALESCE(scientific_name, ''), COALESCE(category, ''), " +
	strings.Join(NutrientKeys, ", ")

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	values := make([]sql.NullFloat64, len(NutrientKeys))

	dest := make([]any, 0, 4+len(NutrientKeys))
	dest = append(dest, &rec.Code, &rec.Name, &rec.ScientificName, &rec.Category)
	for i := range values {
		dest = append(dest, &values[i])
	}

	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}

	rec.Nutrients = make(map[string]float64, len(NutrientKeys))
	for i, key := range NutrientKeys {
		if values[i].Valid {
			rec.Nutrients[key] = values[i].Float64
		}
	}
	return rec, nil
}
