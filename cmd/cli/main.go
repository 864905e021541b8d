package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	switch os.Args[1] {
	case "export":
		doExport(repo)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(repo, *importFile)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

func doExport(repo *sqlite.SQLiteRepository) {
	links, err := repo.Dump(context.Background())
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		log.Fatalf("Encode failed: %v", err)
	}
}

func doImport(repo *sqlite.SQLiteRepository, filename string) {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		log.Fatalf("Failed to decode file: %v", err)
	}

	imported, skipped := 0, 0
	for i := range links {
		l := links[i]
		l.ID = 0 // let the store assign identity
		err := repo.Insert(context.Background(), &l)
		if errors.Is(err, domain.ErrSlugConflict) {
			log.Printf("skip %s: slug already exists", l.Slug)
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("Import failed at slug %s: %v", l.Slug, err)
		}
		imported++
	}
	log.Printf("Imported %d links, skipped %d", imported, skipped)
}
