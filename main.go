package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/DbToolServer/internal/db"
	"github.com/JonMunkholm/DbToolServer/internal/ollama"
	"github.com/JonMunkholm/DbToolServer/internal/server"
	"github.com/JonMunkholm/DbToolServer/internal/tools"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	defaultAddr  = ":8080"
	defaultDSN   = "data/app.db"
	defaultModel = "llama3.2"
)

func main() {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	// Stdout carries the MCP stream in stdio mode; all logging goes to stderr.
	log.SetOutput(os.Stderr)

	driver := env("DB_DRIVER", "sqlite")
	dsn := env("DB_DSN", defaultDSN)
	transport := env("TRANSPORT", "stdio")
	addr := env("ADDR", defaultAddr)
	model := env("OLLAMA_MODEL", defaultModel)

	dialect, err := db.DialectFor(driver)
	if err != nil {
		log.Fatalf("select dialect: %v", err)
	}

	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("create data directory: %v", err)
			}
		}
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := database.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	manager := db.New(database, dialect)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := manager.Init(ctx); err != nil {
		log.Fatalf("init fixture tables: %v", err)
	}
	cancel()

	timeout := time.Duration(envInt("OLLAMA_TIMEOUT", 60)) * time.Second
	llm := ollama.NewClient(env("OLLAMA_BASE_URL", ollama.DefaultBaseURL), timeout)

	toolset := tools.NewToolset(manager, llm, model)

	switch transport {
	case "stdio":
		log.Printf("serving MCP over stdio (driver=%s, model=%s)", driver, model)
		if err := server.ServeStdio(server.NewMCP(toolset)); err != nil {
			log.Fatalf("stdio server: %v", err)
		}
	case "http":
		router := server.NewRouter(toolset, os.Getenv("HTTP_JWT_SECRET"))
		log.Printf("listening on %s (driver=%s, model=%s)", addr, driver, model)
		if err := http.ListenAndServe(addr, router); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("unknown transport: %q (supported: stdio, http)", transport)
	}
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
