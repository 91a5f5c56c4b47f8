package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/playtrack/internal/api"
	"github.com/hazyhaar/playtrack/internal/auth"
	"github.com/hazyhaar/playtrack/internal/config"
	"github.com/hazyhaar/playtrack/internal/db"
	"github.com/hazyhaar/playtrack/internal/mcp"
	"github.com/hazyhaar/playtrack/internal/notify"
	"github.com/hazyhaar/playtrack/pkg/audit"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Printf("playtrack %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`playtrack — rehab gaming score & EMG telemetry backend

Usage:
  playtrack serve [--config config.toml] [--addr :8080]
  playtrack mcp [--config config.toml]
  playtrack version
  playtrack help

Commands:
  serve     Start the HTTP server
  mcp       Serve the MCP tools over stdio
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	hub := notify.NewHub(cfg.Stream.SubscriberBuffer)
	apiHandler := api.New(database, a, hub, cfg)

	// Metrics DB is best-effort: the API runs fine without it.
	var metricsDB *db.MetricsDB
	if cfg.Database.MetricsPath != "" {
		metricsDB, err = db.OpenMetrics(cfg.Database.MetricsPath)
		if err != nil {
			log.Printf("metrics database unavailable: %v", err)
			metricsDB = nil
		} else {
			defer metricsDB.Close()
			apiHandler.SetMetricsDB(metricsDB)
		}
	}

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	handler := api.CORS(api.SecurityHeaders(api.RequestMetrics(metricsDB, a, mux)))

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     handler,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		// No WriteTimeout: the SSE stream endpoints hold their connection open.
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Printf("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("playtrack %s listening on %s", version, cfg.Server.Addr)
	log.Printf("database: %s", cfg.Database.Path)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	auditLog := audit.NewSQLiteLogger(database.DB)
	if err := auditLog.Init(); err != nil {
		log.Fatalf("initializing audit log: %v", err)
	}
	defer auditLog.Close()

	var metricsDB *db.MetricsDB
	if cfg.Database.MetricsPath != "" {
		metricsDB, err = db.OpenMetrics(cfg.Database.MetricsPath)
		if err != nil {
			log.Printf("metrics database unavailable: %v", err)
			metricsDB = nil
		} else {
			defer metricsDB.Close()
		}
	}

	srv := mcp.NewServer(database, auditLog, metricsDB)
	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
