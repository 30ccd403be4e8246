// seed_reference.go loads a reference materials CSV into the Postgres
// reference_materials table.
//
// Usage:
//
//	go run scripts/seed_reference.go -csv data/materials_cleaned.csv -db postgres://localhost/assay
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/MikeSquared-Agency/Assay/internal/store"
)

func main() {
	csvPath := flag.String("csv", "data/materials_cleaned.csv", "path to reference CSV")
	dbURL := flag.String("db", os.Getenv("ASSAY_DATABASE_URL"), "Postgres connection URL")
	migrate := flag.Bool("migrate", true, "apply the schema before loading")
	dryRun := flag.Bool("dry-run", false, "print rows without inserting")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("open reference csv: %v", err)
	}
	defer f.Close()

	materials, err := store.ReadReferenceCSV(f)
	if err != nil {
		log.Fatalf("parse reference csv: %v", err)
	}
	log.Printf("parsed %d materials from %s", len(materials), *csvPath)

	if *dryRun {
		for i, m := range materials {
			fmt.Printf("[%d] %s (density=%.3f, bulk_modulus=%.1f, stable=%t)\n", i+1, m.Formula, m.Density, m.BulkModulus, m.IsStable)
		}
		return
	}

	if *dbURL == "" {
		log.Fatal("database URL required (-db or ASSAY_DATABASE_URL)")
	}

	ctx := context.Background()
	s, err := store.NewPostgresStore(ctx, *dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer s.Close()

	if *migrate {
		if err := s.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	n, err := s.InsertReferenceMaterials(ctx, materials)
	if err != nil {
		log.Fatalf("insert: %v", err)
	}
	log.Printf("done: %d inserted", n)
}
