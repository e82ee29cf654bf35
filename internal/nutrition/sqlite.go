package nutrition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore serves lookups from the SQLite file produced by the dataset loader.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once
	closeErr  error
}

// OpenSQLite opens an existing reference database in query-only mode and
// verifies that the foods table is readable.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreUnavailable, err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM foods").Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to verify schema: %v", ErrStoreUnavailable, err)
	}

	log.Info().Str("path", path).Int("records", count).Msg("Nutrition reference store opened")
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) FindByName(ctx context.Context, query string) ([]Record, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []Record{}, nil
	}

	stmt := `SELECT ` + selectColumns + ` FROM foods
        WHERE name LIKE '%' || ? || '%' ESCAPE '\'
        ORDER BY id`
	return s.queryRecords(ctx, stmt, escapeLike(q))
}

func (s *SQLiteStore) FindByNutrientRange(ctx context.Context, nutrientKey string, min, max float64) ([]Record, error) {
	col, err := ResolveNutrientKey(nutrientKey)
	if err != nil {
		return nil, err
	}

	// col comes from the NutrientKeys whitelist.
	stmt := `SELECT ` + selectColumns + ` FROM foods
        WHERE ` + col + ` IS NOT NULL AND ` + col + ` BETWEEN ? AND ?
        ORDER BY id`
	return s.queryRecords(ctx, stmt, min, max)
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM foods WHERE code = ?`, code)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to query food %s: %w", code, err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		log.Info().Str("path", s.path).Msg("Closing nutrition reference store")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Health reports connectivity and pool statistics for the health endpoint.
func (s *SQLiteStore) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := map[string]string{"driver": "sqlite"}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("nutrition store down: %v", err)
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	return stats
}

func (s *SQLiteStore) queryRecords(ctx context.Context, stmt string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate foods: %w", err)
	}
	return records, nil
}
