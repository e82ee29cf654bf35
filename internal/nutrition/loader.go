package nutrition

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Dialect selects the SQL flavour used by the loader.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// InitSchema creates the foods table and its indexes if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	idCol, realType := "id INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	if dialect == DialectPostgres {
		idCol, realType = "id BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	}

	var cols strings.Builder
	for _, key := range NutrientKeys {
		fmt.Fprintf(&cols, ",\n        %s %s", key, realType)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS foods (
        ` + idCol + `,
        code TEXT NOT NULL UNIQUE,
        name TEXT NOT NULL,
        scientific_name TEXT,
        category TEXT` + cols.String() + `
    )`,
		`CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name)`,
		`CREATE INDEX IF NOT EXISTS idx_foods_category ON foods(category)`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// ImportCSV loads an IFCT-style CSV into the foods table inside one transaction.
// The header must contain "code" and "name"; "scientific_name", "category" and
// any recognized nutrient column (or alias) are optional. Empty cells become NULL.
func ImportCSV(ctx context.Context, db *sql.DB, dialect Dialect, src io.Reader) (int, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	layout, err := parseHeader(header)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	columns := append([]string{"code", "name", "scientific_name", "category"}, NutrientKeys...)
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO foods (%s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders(dialect, len(columns)),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}

		args, err := layout.values(row)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("line %d: failed to insert food: %w", line, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	log.Info().Int("records", inserted).Str("dialect", string(dialect)).Msg("Nutrition dataset imported")
	return inserted, nil
}

// csvLayout records the column index of each field in the source file; -1 means absent.
type csvLayout struct {
	code, name, scientific, category int
	nutrients                        []int
}

func parseHeader(header []string) (*csvLayout, error) {
	layout := &csvLayout{code: -1, name: -1, scientific: -1, category: -1}
	layout.nutrients = make([]int, len(NutrientKeys))
	for i := range layout.nutrients {
		layout.nutrients[i] = -1
	}

	for i, raw := range header {
		h := strings.ToLower(strings.TrimSpace(raw))
		switch h {
		case "code", "food_code":
			layout.code = i
		case "name", "food_name":
			layout.name = i
		case "scientific_name":
			layout.scientific = i
		case "category", "food_group":
			layout.category = i
		default:
			col, err := ResolveNutrientKey(h)
			if err != nil {
				log.Debug().Str("column", raw).Msg("Ignoring unrecognized csv column")
				continue
			}
			for j, key := range NutrientKeys {
				if key == col {
					layout.nutrients[j] = i
				}
			}
		}
	}

	if layout.code < 0 || layout.name < 0 {
		return nil, fmt.Errorf("csv header must contain code and name columns")
	}
	return layout, nil
}

func (l *csvLayout) values(row []string) ([]any, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	optional := func(i int) any {
		if v := cell(i); v != "" {
			return v
		}
		return nil
	}

	code, name := cell(l.code), cell(l.name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("code and name are required")
	}

	args := []any{code, name, optional(l.scientific), optional(l.category)}
	for j, idx := range l.nutrients {
		raw := cell(idx)
		if raw == "" {
			args = append(args, nil)
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s", raw, NutrientKeys[j])
		}
		args = append(args, v)
	}
	return args, nil
}

func placeholders(dialect Dialect, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if dialect == DialectPostgres {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}
