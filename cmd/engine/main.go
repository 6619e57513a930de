package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rawblock/recon-engine/internal/api"
	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/db"
	"github.com/rawblock/recon-engine/internal/dispatch"
	"github.com/rawblock/recon-engine/internal/ingest"
	"github.com/rawblock/recon-engine/internal/report"
	"github.com/rawblock/recon-engine/pkg/models"
)

func main() {
	traderPath := flag.String("trader", "", "trader statement file (.csv or .json); with -exchange, runs one batch reconciliation and exits")
	exchangePath := flag.String("exchange", "", "exchange statement file (.csv or .json)")
	configPath := flag.String("config", "", "group configuration overrides (JSON); defaults apply when empty")
	flag.Parse()

	groups, err := loadGroups(*configPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	if *traderPath != "" || *exchangePath != "" {
		if *traderPath == "" || *exchangePath == "" {
			log.Fatal("FATAL: batch mode needs both -trader and -exchange")
		}
		runBatch(groups, *traderPath, *exchangePath)
		return
	}

	serve(groups)
}

// runBatch reconciles two statement files and prints the per-group reports.
func runBatch(groups map[string]*config.GroupConfig, traderPath, exchangePath string) {
	aliases := mergedAliases(groups)

	trader, err := readStatement(traderPath, "trd", aliases)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	exchange, err := readStatement(exchangePath, "exch", aliases)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	outcome, err := dispatch.New(groups).Run(trader, exchange, nil)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	for _, result := range outcome.Results {
		fmt.Print(report.Render(result))
	}
	if len(outcome.Rejected) > 0 {
		fmt.Printf("rejected %d record(s) at normalization\n", len(outcome.Rejected))
	}
}

// serve starts the reconciliation API.
func serve(groups map[string]*config.GroupConfig) {
	log.Println("Starting RawBlock Trade Reconciliation Engine...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	var dbConn *db.PostgresStore
	if dbUrl := os.Getenv("DATABASE_URL"); dbUrl != "" {
		conn, err := db.Connect(dbUrl)
		if err != nil {
			log.Printf("Warning: Failed to connect to PostgreSQL, continuing without the run archive. Error: %v", err)
		} else {
			dbConn = conn
			defer dbConn.Close()
			if err := dbConn.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	} else {
		log.Println("DATABASE_URL not set, run archive disabled")
	}

	// Setup WebSocket Hub
	wsHub := api.NewHub()
	go wsHub.Run()

	// Setup the Gin Router
	r := api.SetupRouter(dbConn, groups, wsHub)

	port := getEnvOrDefault("PORT", "5339")

	// Start the server
	log.Printf("Engine running on :%s (%d exchange groups configured)\n", port, len(groups))
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func loadGroups(path string) (map[string]*config.GroupConfig, error) {
	if path == "" {
		path = os.Getenv("RECON_CONFIG")
	}
	if path == "" {
		return config.Defaults(), nil
	}
	return config.LoadFile(path)
}

// mergedAliases collects every group's header aliases so a mixed statement
// file parses regardless of which dialect each row belongs to.
func mergedAliases(groups map[string]*config.GroupConfig) map[string]string {
	out := make(map[string]string)
	for _, gc := range groups {
		for alias, canonical := range gc.HeaderAliases {
			out[alias] = canonical
		}
	}
	return out
}

func readStatement(path, idPrefix string, aliases map[string]string) ([]models.RawTrade, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return ingest.ReadJSONFile(path)
	}
	return ingest.ReadCSVFile(path, idPrefix, aliases)
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
