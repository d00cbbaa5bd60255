package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/liberdade/config"
	"github.com/KotFed0t/liberdade/data"
	"github.com/KotFed0t/liberdade/data/cache"
	"github.com/KotFed0t/liberdade/data/lock"
	"github.com/KotFed0t/liberdade/data/repository/postgres"
	"github.com/KotFed0t/liberdade/data/session"
	"github.com/KotFed0t/liberdade/internal/externalApi/bcbApi"
	"github.com/KotFed0t/liberdade/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/liberdade/internal/externalApi/holidaysApi"
	"github.com/KotFed0t/liberdade/internal/externalApi/statusInvestApi"
	"github.com/KotFed0t/liberdade/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/liberdade/internal/scheduler"
	"github.com/KotFed0t/liberdade/internal/service/calendarService"
	"github.com/KotFed0t/liberdade/internal/service/dailyUpdateService"
	"github.com/KotFed0t/liberdade/internal/service/forecastService"
	"github.com/KotFed0t/liberdade/internal/service/holidayService"
	"github.com/KotFed0t/liberdade/internal/service/marketRateService"
	"github.com/KotFed0t/liberdade/internal/service/portfolioService"
	"github.com/KotFed0t/liberdade/internal/service/rebalanceService"
	"github.com/KotFed0t/liberdade/internal/service/reportService"
	"github.com/KotFed0t/liberdade/internal/tgbot"
	"github.com/KotFed0t/liberdade/internal/transport/telegram"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	location := cfg.Location()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)
	redisLocker := lock.NewRedisLocker(redisClient)

	bcbApiClient := bcbApi.New(cfg)
	statusInvestApiClient := statusInvestApi.New(cfg)
	holidaysApiClient := holidaysApi.New(cfg)

	holidaySrv := holidayService.New(redisCache, pgRepo, holidaysApiClient)
	calendarSrv := calendarService.New(holidaySrv, cfg.Cache.CalendarMemoExpiration)

	marketRateSrv := marketRateService.New(calendarSrv, bcbApiClient, bcbApiClient, statusInvestApiClient, marketRateService.Options{
		ReferenceCode:    cfg.Market.ReferenceCode,
		Jurisdiction:     cfg.Market.Jurisdiction,
		SeriesID:         cfg.API.BcbApi.SelicSeriesID,
		RecentRatesCount: cfg.API.BcbApi.RecentRatesCount,
	})

	portfolioSrv := portfolioService.New(pgRepo, cfg.Market.ReferenceCode, cfg.PositionsPerPage)

	forecastSrv := forecastService.New(pgRepo, calendarSrv, forecastService.Options{
		ReferenceCode:             cfg.Market.ReferenceCode,
		Jurisdiction:              cfg.Market.Jurisdiction,
		DefaultMonthlyRatePercent: cfg.Market.DefaultMonthlyRatePercent,
		Location:                  location,
	})

	rebalanceSrv := rebalanceService.New(pgRepo)

	reportGenerator := xslsxGenerator.New()

	var googleCloudStorage *googleDriveApi.GoogleDriveApi
	var cloudStorage reportService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		googleCloudStorage = googleDriveApi.New(ctx, cfg)
		cloudStorage = googleCloudStorage
	}

	reportSrv := reportService.New(portfolioSrv, forecastSrv, rebalanceSrv, reportGenerator, cloudStorage)

	dailyUpdateSrv := dailyUpdateService.New(pgRepo, marketRateSrv, calendarSrv, redisLocker, dailyUpdateService.Options{
		ReferenceCode: cfg.Market.ReferenceCode,
		Jurisdiction:  cfg.Market.Jurisdiction,
		LockTTL:       cfg.Jobs.LockTTL,
		Location:      location,
	})

	if cfg.Telegram.Token != "" {
		tgController := telegram.NewController(cfg, portfolioSrv, forecastSrv, rebalanceSrv, reportSrv, dailyUpdateSrv, redisSession)

		tgBot := tgbot.New(cfg, tgController, redisSession)
		tgBot.Start()
		defer tgBot.Stop()

		dailyUpdateSrv.SetNotifier(tgBot)
	} else {
		slog.Warn("TELEGRAM_TOKEN is empty, bot disabled")
	}

	dailyUpdateAt, err := scheduler.ParseTimeOfDay(cfg.Jobs.DailyUpdateAt)
	if err != nil {
		slog.Error("invalid DAILY_UPDATE_AT", slog.String("err", err.Error()))
		os.Exit(1)
	}

	sched := scheduler.New(clockwork.NewRealClock(), location)
	sched.NewDailyJob("daily update", dailyUpdateSrv.Run, dailyUpdateAt, scheduler.RetryPolicy{
		MaxRetries: cfg.Jobs.MaxRetries,
		Backoff:    cfg.Jobs.RetryBackoff,
	})

	if googleCloudStorage != nil {
		cleanDriveAt, err := scheduler.ParseTimeOfDay(cfg.Jobs.CleanDriveAt)
		if err != nil {
			slog.Error("invalid CLEAN_DRIVE_AT", slog.String("err", err.Error()))
			os.Exit(1)
		}
		sched.NewDailyJob("clean google drive", googleCloudStorage.DeleteOldFiles, cleanDriveAt, scheduler.RetryPolicy{})
	}

	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
