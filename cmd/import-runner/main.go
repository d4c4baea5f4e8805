// import-runner executes one import pass from the command line, either
// for a single connector or for all of them. Useful for backfills and
// for debugging a connector without the HTTP service.
//
// Usage:
//
//	go run ./cmd/import-runner              # all connectors
//	go run ./cmd/import-runner SampleExternalAPI
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/connectors"
	"github.com/tomaszgubala/car-dealer/models"
)

func main() {
	_ = godotenv.Load()

	name := ""
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if name != "" && connectors.FindConnector(name) == nil {
		fmt.Fprintf(os.Stderr, "unknown connector %q (registered: %s)\n",
			name, strings.Join(connectors.ConnectorNames(), ", "))
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	importer := connectors.NewImporter()
	results := importer.Run(context.Background(), name)

	failed := false
	for _, r := range results {
		fmt.Printf("%s: job=%d status=%s new=%d updated=%d errors=%d\n",
			r.Connector, r.JobId, r.Status, r.NewCount, r.UpdatedCount, r.ErrorCount)
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
		if r.Status == string(models.ImportJobStatusFailed) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
