package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"goamr/adapters/store"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal/migration"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <postgres|sqlite3> <database_url> [reports_dir]")
	}

	driver := os.Args[1]
	databaseURL := os.Args[2]

	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema %s applied (%s)", runner.Version(), driver)

	if len(os.Args) < 4 {
		return
	}

	reportsDir := os.Args[3]
	files, err := findReportFiles(reportsDir)
	if err != nil {
		log.Fatalf("Failed to find report files: %v", err)
	}
	log.Printf("Found %d report files to import", len(files))

	repo := store.NewReportRepository(db)
	imported, skipped := 0, 0
	for _, file := range files {
		report, err := loadReportFromFile(file)
		if err != nil {
			log.Printf("Skipping %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}

		if err := repo.Save(ctx, report); err != nil {
			log.Printf("Failed to save report from %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}

		imported++
		log.Printf("Imported report %s from %s", report.ID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findReportFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// loadReportFromFile reads a report written by the cli. Reports without an
// id get one derived from the file path so re-imports overwrite rather than
// duplicate.
func loadReportFromFile(path string) (*metrics.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var report metrics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.Records == nil && report.Summary == nil {
		return nil, core.NewMalformedInputError("not an enriched report")
	}

	if report.ID == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		report.ID = core.ReportID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String())
	}
	if report.GeneratedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			report.GeneratedAt = info.ModTime().UTC()
		}
	}

	return &report, nil
}
