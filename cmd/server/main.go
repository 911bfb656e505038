package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/handler"
	"github.com/GoPolymarket/namegate/internal/middleware"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/repository"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/GoPolymarket/namegate/internal/signer"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if !cfg.Auth.RequireSignature {
		logger.Warn("⚠️ Caller signatures disabled, X-Caller-Address is trusted on paid routes")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Persistence
	// Ledger snapshots (Postgres > memory only)
	var stateRepo service.StateRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			repo, err := repository.NewPostgresLedgerRepo(db)
			if err != nil {
				log.Fatalf("Failed to migrate ledger tables: %v", err)
			}
			logger.Info("✅ Connected to PostgreSQL")
			stateRepo = repo
		} else {
			logger.Error("⚠️ Failed to connect to DB, ledger will not survive restarts", "error", err)
		}
	}

	// Notification history + idempotency (Redis > memory)
	var history service.NotificationHistory
	var idempotency middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore()
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			defer redisClient.Close()
			history = repository.NewRedisEventLog(redisClient, cfg.Redis.EventListKey, cfg.Redis.EventListMax)
			idempotency = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}

	// Optional Kafka fan-out
	var sinks []service.NotificationSink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := repository.NewKafkaEventSink(cfg.Kafka)
		if err != nil {
			log.Fatalf("Failed to initialize kafka sink: %v", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		logger.Info("✅ Publishing notifications to Kafka", "topic", cfg.Kafka.Topic)
	}

	eventSvc, err := service.NewEventService(cfg.Events.LogDir, cfg.Events.BufferSize, history, sinks...)
	if err != nil {
		log.Fatalf("Failed to initialize event service: %v", err)
	}

	// 3. Initialize Core Services
	registrar, err := newRegistrar(ctx, cfg, stateRepo, eventSvc)
	if err != nil {
		log.Fatalf("Failed to initialize registrar: %v", err)
	}

	// Contract-wallet callers (EIP-1271) need a chain to ask
	var contracts middleware.ContractSignatureVerifier
	if cfg.Chain.RPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			log.Fatalf("Failed to dial chain rpc: %v", err)
		}
		defer client.Close()
		contracts = signer.NewContractVerifier(client,
			time.Duration(cfg.Chain.OracleCacheSeconds)*time.Second,
			time.Duration(cfg.Chain.OracleTimeoutMs)*time.Millisecond,
			cfg.Chain.OracleRetries)
	}

	// 4. Setup Router
	r := handler.NewRouter(handler.RouterDeps{
		Config:      cfg,
		Registrar:   registrar,
		Events:      eventSvc,
		Idempotency: idempotency,
		Limiter:     middleware.NewCallerLimiter(cfg.Rate.QPS, cfg.Rate.Burst),
		Contracts:   contracts,
	})

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eventSvc.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("🚀 NameGate started", "port", cfg.Server.Port, "operator", registrar.Operator().Hex())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("🛑 Shutting down server...")

		timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		eventSvc.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	logger.Info("Server exiting")
}
