package main

import (
	"flag"
	"log"
	"time"

	"github.com/castlecab/backoffice/internal/cli"
	"github.com/castlecab/backoffice/internal/infrastructure/config"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

func main() {
	var (
		dbPath     string
		configFile string
		status     string
		detail     bool
	)
	flag.StringVar(&dbPath, "db", "", "Path to database file (uses config if not specified)")
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.StringVar(&status, "status", "", "Filter by float status (outstanding, returned, reconciled, shortage)")
	flag.BoolVar(&detail, "detail", false, "Print per-float attribution detail")
	flag.Parse()

	if dbPath == "" {
		cfg := config.LoadOrEnvWithPath(configFile)
		dbPath = cfg.Storage.DatabasePath
	}

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListFloats(status)
	if err != nil {
		log.Fatal(err)
	}

	cli.PrintReportHeader(dbPath, time.Now().Format("2006-01-02 15:04:05"))
	cli.PrintFloatSummary(records)

	if detail {
		for _, f := range records {
			attributions, err := store.GetAttributions(f.ID)
			if err != nil {
				log.Fatal(err)
			}
			cli.PrintFloatDetail(f, attributions)
		}
	}
}
