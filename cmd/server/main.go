package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/studyroomhq/studyroom/internal/api"
	"github.com/studyroomhq/studyroom/internal/config"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/relay"
	"github.com/studyroomhq/studyroom/internal/stats"
)

const defaultSigningKey = "c2R2a2xqc2Rha2xzZGphc2tkanNhbGtkYXNqZGxrYQ=="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	skipMigrate    bool
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&skipMigrate, "skip-migrate", false, "skip running database migrations on startup")
	flag.Parse()

	logger := log.New(os.Stderr, "[studyroom] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgStudyRoomRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if !skipMigrate {
		if err := dbConn.Migrate(); err != nil {
			logger.Fatal("db migrate:", err)
		}
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	roomServer := relay.NewRoomServer(dbConn, logger, statsUpdater)

	srv := api.NewStudyRoomApp(mux, logger, roomServer, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go roomServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down room server...")
	if err := roomServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("room server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
