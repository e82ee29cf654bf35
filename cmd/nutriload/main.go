// Package main provides the nutriload binary, which builds the nutrition
// reference database from an IFCT-style CSV export. It runs offline, once per
// dataset release, before the API server is started.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"AyurAhar_V1/internal/database"
	"AyurAhar_V1/internal/nutrition"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nutriload",
		Short:         "Build and inspect the nutrition reference database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(importCmd(), searchCmd())
	return cmd
}

type importOptions struct {
	csvPath string
	dbPath  string
	driver  string
	dbURL   string
}

func importCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create the foods table and load a CSV into it",
		Long: `Creates the foods table and its indexes if needed, then loads every row of
the CSV in a single transaction. The header must name "code" and "name";
"scientific_name", "category" and nutrient columns such as energy_kcal or
protein_g are optional.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			n, err := runImport(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d foods\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "data/ifct.db", "SQLite database file to create or extend")
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "Target database: sqlite or postgres")
	cmd.Flags().StringVar(&opts.dbURL, "url", os.Getenv("NUTRITION_DB_URL"), "Postgres connection string (postgres driver)")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runImport(ctx context.Context, opts importOptions) (int, error) {
	db, dialect, err := openTarget(opts)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	f, err := os.Open(opts.csvPath)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	start := time.Now()
	if err := nutrition.InitSchema(ctx, db, dialect); err != nil {
		return 0, err
	}
	n, err := nutrition.ImportCSV(ctx, db, dialect, f)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("csv", opts.csvPath).
		Str("driver", string(dialect)).
		Int("records", n).
		Dur("took", time.Since(start)).
		Msg("Nutrition dataset imported")
	return n, nil
}

func openTarget(opts importOptions) (*sql.DB, nutrition.Dialect, error) {
	switch strings.ToLower(opts.driver) {
	case "sqlite", "":
		if dir := filepath.Dir(opts.dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite", opts.dbPath+"?_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		return db, nutrition.DialectSQLite, nil
	case "postgres":
		if opts.dbURL == "" {
			return nil, "", fmt.Errorf("--url is required for the postgres driver")
		}
		db, err := sql.Open(database.StdlibDriver, opts.dbURL)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return db, nutrition.DialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("unsupported driver %q", opts.driver)
	}
}

func searchCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Look up foods by name in a SQLite reference database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := nutrition.OpenSQLite(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.FindByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.Code, r.Name, nutrition.FormatNutrients(r))
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "no matches")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "data/ifct.db", "SQLite database file")
	return cmd
}
