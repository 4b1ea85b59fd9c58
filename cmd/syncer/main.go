package main

import (
	"context"
	"database/sql"
	"flag"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"vacation_deals/internal/adapters/dealsapi"
	"vacation_deals/internal/adapters/observability"
	redisad "vacation_deals/internal/adapters/redis"
	"vacation_deals/internal/app"
	"vacation_deals/internal/domain"
	"vacation_deals/internal/shared"
	mysqlrepo "vacation_deals/internal/storage/mysql"
)

func main() {
	only := flag.String("deals", "", "comma-separated deal ids to sync (default: every deal the API lists)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger("syncer", cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("base", cfg.DealsBase).
		Int("workers", cfg.Workers).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := dealsapi.New(cfg.DealsBase, cfg.DealsToken, cfg.DealsRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize deals API client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	dir := app.NewDirectoryService(client, cache, cfg.CacheTTL)
	proj := app.NewProjector(dir, domain.NewLabelFormatter(cfg.LabelMaxLen, cfg.LabelPlacesMaxLen))
	svc := app.NewSyncService(client, repo, cache, proj)

	ids := splitIDs(*only)
	if len(ids) == 0 {
		ids, err = svc.DealIDs(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("list deals failed")
		}
	}
	log.Info().Int("deals", len(ids)).Msg("sync plan ready")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Warn().Err(err).Msg("sync interrupted")
			break
		}

		wg.Add(1)
		go func(dealID string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			err := svc.SyncDeal(ctx, dealID)
			observability.ObserveSync(err)
			if err != nil {
				log.Warn().Str("deal", dealID).Err(err).Msg("sync failed")
				return
			}
			log.Info().Str("deal", dealID).Msg("sync ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("sync completed")
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
