package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/broker"
	"github.com/jahatelomain/jahatelo-sub002/internal/broker/rabbitmq"
	"github.com/jahatelomain/jahatelo-sub002/internal/config"
	"github.com/jahatelomain/jahatelo-sub002/internal/handler"
	"github.com/jahatelomain/jahatelo-sub002/internal/metrics"
	"github.com/jahatelomain/jahatelo-sub002/internal/repository/postgres"
	"github.com/jahatelomain/jahatelo-sub002/internal/repository/redis"
	"github.com/jahatelomain/jahatelo-sub002/internal/usecase"
	"github.com/jahatelomain/jahatelo-sub002/internal/usecase/alert"
	"github.com/jahatelomain/jahatelo-sub002/internal/usecase/push"

	"github.com/wb-go/wbf/dbpg"
	wbfredis "github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"
)

const ShutdownTimeout = 5 * time.Second

type NotificationUsecase interface {
	handler.NotificationService
	DispatchDue(ctx context.Context) (int, error)
}

type App struct {
	cfg    *config.Config
	db     *dbpg.DB
	rd     *wbfredis.Client
	broker *rabbitmq.Broker
	uc     NotificationUsecase
	server *http.Server
	worker broker.Worker
}

func NewApp(cfg *config.Config) *App {
	retries := cfg.DefaultRetryStrategy()

	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}
	db, err := dbpg.New(cfg.DBDSN(), cfg.DB.Slaves, dbOpts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	rd := wbfredis.New(cfg.RedisAddr(), cfg.Redis.Pass, cfg.Redis.DB)
	cache := redis.NewRedisCache(rd, retries)
	repo := postgres.NewNotificationRepository(db, cache, retries, time.Duration(cfg.CacheTTLHours)*time.Hour)
	audience := postgres.NewAudienceRepository(db, retries)
	prefs := postgres.NewPreferenceRepository(db, retries)
	br := rabbitmq.NewRabbitMQ(cfg, retries)

	sender := push.NewExpoSender(cfg.Push.Endpoint, &http.Client{Timeout: cfg.Push.Timeout})
	alerter := alert.NewTelegramAlerter(alert.Config{
		BotToken:  cfg.Telegram.BotToken,
		OpsChatID: cfg.Telegram.OpsChatID,
	})

	uc := usecase.NewNotificationUsecase(
		repo,
		usecase.NewAudienceResolver(audience),
		usecase.NewPreferenceGate(prefs),
		sender,
		br,
		alerter,
		cfg.Dispatch.FanoutWorkers,
	)
	worker := rabbitmq.NewWorker(br, func(ctx context.Context, id string) error {
		_, err := uc.Dispatch(ctx, id)
		return err
	})

	metrics.Register()
	h := handler.NewHandler(uc)
	mux := handler.SetupRouter(h)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.LoggingMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return &App{
		cfg:    cfg,
		db:     db,
		rd:     rd,
		broker: br,
		uc:     uc,
		server: srv,
		worker: worker,
	}
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.worker.Start(ctx)
	go a.runSweeper(ctx)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Server failed")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Logger.Info().Msg("Shutting down...")
	cancel()
	a.worker.Stop()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancelShutdown()
	if err := a.server.Shutdown(ctxShutdown); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Shutdown failed")
	}
	a.broker.Close()
	a.db.Master.Close()
	a.rd.Close()
	zlog.Logger.Info().Msg("Exited")
}

// runSweeper periodically dispatches pending records past their send time.
// It backs up the broker ticks; duplicates are serialized by the claim.
func (a *App) runSweeper(ctx context.Context) {
	interval := a.cfg.Dispatch.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.uc.DispatchDue(ctx)
			if err != nil {
				zlog.Logger.Error().Err(err).Msg("Due sweep failed")
				continue
			}
			if n > 0 {
				zlog.Logger.Info().Int("dispatched", n).Msg("Due sweep complete")
			}
		}
	}
}
