package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nurpe/giga-contracts/internal/auth"
	"github.com/nurpe/giga-contracts/internal/cache"
	"github.com/nurpe/giga-contracts/internal/config"
	"github.com/nurpe/giga-contracts/internal/db"
	"github.com/nurpe/giga-contracts/internal/excel"
	httphandler "github.com/nurpe/giga-contracts/internal/http"
	"github.com/nurpe/giga-contracts/internal/http/middleware"
	"github.com/nurpe/giga-contracts/internal/logger"
	"github.com/nurpe/giga-contracts/internal/metrics"
	"github.com/nurpe/giga-contracts/internal/pdf"
	"github.com/nurpe/giga-contracts/internal/repository"
	"github.com/nurpe/giga-contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database, cfg.DB.TxIsolation, cfg.Contracts.TxTimeout)
	viewRepo := repository.NewViewRepository(database)

	var measures service.MeasureReader = repository.NewMeasureRepository(database)
	redisClient, err := cache.NewClient(context.Background(), cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient != nil {
		measures = cache.NewMeasureCache(redisClient, measures, cfg.Redis.MeasureCacheTTL, log)
		log.Info().Dur("ttl", cfg.Redis.MeasureCacheTTL).Msg("measure average cache enabled")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	contractService := service.NewContractService(contractRepo, log, m)
	statusService := service.NewStatusService(contractRepo, log, m)
	viewService := service.NewViewService(viewRepo, measures, log, m)
	exportService := service.NewExportService(viewService, contractService, excel.NewGenerator(), pdf.NewGenerator())

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(httphandler.Services{
		Contracts: contractService,
		Statuses:  statusService,
		Views:     viewService,
		Exports:   exportService,
	}, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
		Log:            log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
