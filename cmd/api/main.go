package main

import (
	"context"
	"net/http"

	"github.com/z00rs/learn2earn-herman-test/internal/api"
	"github.com/z00rs/learn2earn-herman-test/internal/cache"
	"github.com/z00rs/learn2earn-herman-test/internal/config"
	"github.com/z00rs/learn2earn-herman-test/internal/ledger"
	"github.com/z00rs/learn2earn-herman-test/internal/logging"
	"github.com/z00rs/learn2earn-herman-test/internal/service"
	"github.com/z00rs/learn2earn-herman-test/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("development").Fatal(err)
	}

	log := logging.New(cfg.Env)
	log.WithField("moderator_key", logging.EnvVarStatus("MODERATOR_KEY")).
		WithField("distributor_key", logging.EnvVarStatus("DISTRIBUTOR_PRIVATE_KEY")).
		Info("configuration loaded")

	submissionStore, err := store.New(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer submissionStore.Close()

	if err := submissionStore.Init(context.Background()); err != nil {
		log.Fatalf("Unable to initialize schema: %v", err)
	}

	ledgerClient, err := ledger.New(cfg.RPCURL, cfg.ContractAddress, cfg.DistributorKey, cfg.ChainID, cfg.LedgerReadTimeout, log)
	if err != nil {
		log.Fatalf("Unable to create ledger client: %v", err)
	}

	var statusCache cache.StatusCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.StatusCacheTTL)
		if err != nil {
			log.Fatalf("Unable to connect to redis: %v", err)
		}
		statusCache = redisCache
		log.WithField("addr", cfg.RedisAddr).Info("using redis status cache")
	} else {
		statusCache = cache.NewMemory(cfg.StatusCacheTTL)
		log.Info("using in-memory status cache")
	}

	svc := service.New(submissionStore, ledgerClient, statusCache, log)
	handler := api.NewHandler(svc, cfg.ModeratorKey, cfg.ExplorerURL, log)
	router := api.NewRouter(handler)

	log.Infof("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
