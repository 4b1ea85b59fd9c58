package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"vacation_deals/internal/adapters/dealsapi"
	server "vacation_deals/internal/adapters/http_server"
	"vacation_deals/internal/adapters/observability"
	redisad "vacation_deals/internal/adapters/redis"
	"vacation_deals/internal/app"
	"vacation_deals/internal/domain"
	"vacation_deals/internal/shared"
	mysqlrepo "vacation_deals/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger("api", cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	client, err := dealsapi.New(cfg.DealsBase, cfg.DealsToken, cfg.DealsRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize deals API client")
	}

	dir := app.NewDirectoryService(client, cache, cfg.CacheTTL)
	proj := app.NewProjector(dir, domain.NewLabelFormatter(cfg.LabelMaxLen, cfg.LabelPlacesMaxLen))
	syncer := app.NewSyncService(client, repo, cache, proj)

	// http
	srv := server.New(cfg.AdminToken)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Storefront: app.NewStorefrontService(repo, cache, cfg.CacheTTL, syncer),
		Editor:     app.NewEditorService(client, repo, cache, proj),
		Directory:  dir,
		Checks: map[string]func(context.Context) error{
			"mysql": repo.Ping,
			"redis": cache.Ping,
		},
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
