package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"AyurAhar_V1/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore serves lookups from a Postgres copy of the reference dataset.
type PostgresStore struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

// OpenPostgres connects to connStr and verifies the foods table is readable.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM foods").Scan(&count); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to verify schema: %v", ErrStoreUnavailable, err)
	}

	log.Info().Int("records", count).Msg("Nutrition reference store connected (postgres)")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, query string) ([]Record, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []Record{}, nil
	}

	stmt := `SELECT ` + selectColumns + ` FROM foods
        WHERE name ILIKE '%' || $1 || '%'
        ORDER BY id`
	return s.queryRecords(ctx, stmt, escapeLike(q))
}

func (s *PostgresStore) FindByNutrientRange(ctx context.Context, nutrientKey string, min, max float64) ([]Record, error) {
	col, err := ResolveNutrientKey(nutrientKey)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT ` + selectColumns + ` FROM foods
        WHERE ` + col + ` IS NOT NULL AND ` + col + ` BETWEEN $1 AND $2
        ORDER BY id`
	return s.queryRecords(ctx, stmt, min, max)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (Record, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM foods WHERE code = $1`, code)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to query food %s: %w", code, err)
	}
	return rec, true, nil
}

func (s *PostgresStore) Close() error {
	s.closeOnce.Do(func() {
		log.Info().Msg("Disconnecting nutrition reference store (postgres)")
		s.pool.Close()
	})
	return nil
}

// Health reports pool statistics for the health endpoint.
func (s *PostgresStore) Health(ctx context.Context) map[string]string {
	stats := database.PoolHealth(ctx, s.pool)
	stats["driver"] = "postgres"
	return stats
}

func (s *PostgresStore) queryRecords(ctx context.Context, stmt string, args ...any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
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
