package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/agoranet/agora/internal/app"
	"github.com/agoranet/agora/internal/config"
	"github.com/agoranet/agora/internal/logger"
	"github.com/agoranet/agora/pkg/ledger"
)

var (
	version = "dev"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides AGORA_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides AGORA_DB)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (overrides AGORA_LOG_LEVEL)")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Agora - Discussion Rooms with Ballot Voting

Usage:
  agora [options]

Options:
  -port int      HTTP server port (overrides AGORA_PORT)
  -db string     SQLite database path (overrides AGORA_DB)
  -loglevel str  Log level: debug, info, warn, error (overrides AGORA_LOG_LEVEL)
  -version       Show version and exit
  -help          Show this help message

Environment:
  AGORA_PORT        HTTP server port (default 8080)
  AGORA_DB          SQLite database path (default "agora.db")
  AGORA_JWT_SECRET  Secret for verifying bearer tokens (required)
  AGORA_LEDGER_URL  Base URL of the vote-mirroring ledger (optional)
  AGORA_BASE_URL    Public base URL for invite links (optional)
  AGORA_LOG_LEVEL   Log level (default "info")

A .env file in the working directory is honored when present.

Examples:
  agora                         # Run with environment configuration
  agora -port 8080              # Run on port 8080
  agora -db /data/agora.db      # Use custom database path

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("agora %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Flags win over the environment
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	var ledgerClient ledger.Client
	if cfg.LedgerURL != "" {
		ledgerClient = ledger.NewHTTPClient(cfg.LedgerURL, appLog)
		appLog.Info("Vote mirroring enabled", "ledger_url", cfg.LedgerURL)
	}

	a, err := app.New(appLog, cfg, ledgerClient)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := a.Run(addr); err != nil {
		log.Fatal(err)
	}
}
