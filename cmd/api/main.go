package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecorder/internal/config"
	"ecorder/internal/gateway"
	"ecorder/internal/handler"
	"ecorder/internal/infra/db"
	"ecorder/internal/infra/messaging"
	"ecorder/internal/infra/ratelimit"
	infraRepo "ecorder/internal/infra/repository"
	"ecorder/internal/logger"
	"ecorder/internal/middleware"
	"ecorder/internal/server"
	"ecorder/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//在庫を引く拠点
	loc, err := usecase.ResolveStockLocation(ctx, infraRepo.NewLocationGormRepository(gormDB), cfg.DefaultLocationCode, log)
	if err != nil {
		return err
	}
	log.Info("stock location", zap.String("code", loc.Code), zap.Int64("id", loc.ID))

	//決済ゲートウェイ（設定のあるものだけ）
	var adapters []gateway.Adapter
	if cfg.VNPay.Enabled() {
		adapters = append(adapters, gateway.NewVNPay(cfg.VNPay))
	}
	if cfg.MoMo.Enabled() {
		adapters = append(adapters, gateway.NewMoMo(cfg.MoMo, &http.Client{Timeout: 15 * time.Second}))
	}
	gateways := gateway.NewRegistry(adapters...)
	log.Info("payment gateways", zap.Any("methods", gateways.Methods()))

	//注文イベント
	var events usecase.EventPublisher = messaging.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close", zap.Error(err))
			}
		}()
		events = kp
	}

	//注文作成のレート制限（Redisが無ければ無効）
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		limiter = ratelimit.NewFixedWindow(rdb, "ecorder:place", cfg.OrderRateLimit, cfg.OrderRateWindow)
	}

	//Usecase生成
	tx := infraRepo.NewTxManagerGorm(gormDB)
	orderUC := usecase.NewOrderUsecase(tx, gateways, events, log, loc.ID)
	paymentUC := usecase.NewPaymentUsecase(tx, events, log)
	adminUC := usecase.NewAdminOrderUsecase(tx, events, log, loc.ID)

	srv := server.New(server.Options{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}, server.Handlers{
		Orders:      handler.NewOrderHandler(orderUC),
		Payments:    handler.NewPaymentHandler(paymentUC, gateways, log, cfg.FEURL, cfg.PaymentReturnPath),
		AdminOrders: handler.NewAdminOrderHandler(adminUC),
	}, cfg.JWTSecret, limiter, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
