package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderscan-api/internal/cache"
	"orderscan-api/internal/config"
	"orderscan-api/internal/device"
	"orderscan-api/internal/events"
	"orderscan-api/internal/handler"
	"orderscan-api/internal/middleware"
	"orderscan-api/internal/repository"
	"orderscan-api/internal/router"
	"orderscan-api/internal/scanner"
	"orderscan-api/internal/service"
	"orderscan-api/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := logger.New(cfg.App.Environment)
	defer log.Sync()

	log.Info("starting orderscan-api",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version))

	// MySQL is optional; it backs terminal accounts, and the catalog when
	// CATALOG_DB_TYPE=mysql.
	var mysqlDB *sql.DB
	if db, err := sql.Open("mysql", cfg.Database.DSN()); err != nil {
		log.Warn("mysql connection failed", zap.Error(err))
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			log.Warn("mysql ping failed, terminal auth disabled", zap.Error(err))
			db.Close()
		} else {
			mysqlDB = db
			log.Info("mysql connection established")
		}
	}
	if mysqlDB != nil {
		defer mysqlDB.Close()
	}

	var accountRepo repository.AccountRepository
	if mysqlDB != nil {
		accountRepo = repository.NewMySQLAccountRepository(mysqlDB, log)
	}

	// Initialize catalog repository based on config
	var catalogRepo repository.CatalogRepository
	switch cfg.CatalogDB.Type {
	case "postgres", "postgresql":
		pgRepo, err := repository.NewPostgresCatalogRepository(cfg.CatalogDB.PostgresDSN(), log)
		if err != nil {
			log.Fatal("failed to initialize postgres catalog", zap.Error(err))
		}
		defer pgRepo.Close()
		catalogRepo = pgRepo
		log.Info("postgres catalog repository initialized")
	case "mysql":
		if mysqlDB == nil {
			log.Fatal("catalog db type is mysql but mysql is unavailable")
		}
		myRepo, err := repository.NewMySQLCatalogRepository(mysqlDB, log)
		if err != nil {
			log.Fatal("failed to initialize mysql catalog", zap.Error(err))
		}
		catalogRepo = myRepo
		log.Info("mysql catalog repository initialized")
	default: // sqlite
		sqliteRepo, err := repository.NewSQLiteCatalogRepository(cfg.CatalogDB.Path, log)
		if err != nil {
			log.Fatal("failed to initialize sqlite catalog", zap.Error(err))
		}
		defer sqliteRepo.Close()
		catalogRepo = sqliteRepo
		log.Info("sqlite catalog repository initialized", zap.String("path", cfg.CatalogDB.Path))
	}

	// Order state store
	orderStateRepo, err := repository.NewSQLiteOrderStateRepository(cfg.Order.StatePath, log)
	if err != nil {
		log.Fatal("failed to initialize order state store", zap.Error(err))
	}
	defer orderStateRepo.Close()

	// Scan event log
	eventRepo, err := repository.NewSQLiteScanEventRepository(cfg.Events.Path, log)
	if err != nil {
		log.Fatal("failed to initialize scan event store", zap.Error(err))
	}
	defer eventRepo.Close()

	// Initialize Redis client (optional; tokens and the event buffer need it)
	redisAddr := cfg.Cache.RedisAddress()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis connection failed, tokens and event buffering disabled", zap.Error(err))
		redisClient.Close()
		redisClient = nil
	} else {
		log.Info("redis client initialized", zap.String("addr", redisAddr))
	}
	cancelPing()
	if redisClient != nil {
		defer redisClient.Close()
	}

	var tokenService *service.TokenService
	if redisClient != nil {
		tokenService = service.NewTokenService(redisClient, log)
	}

	// Scan event sink: events land in the store, buffered through Redis when
	// available, and mirrored to Kafka when enabled.
	storeSink := events.NewStoreSink(eventRepo, log)

	var redisBuffer *cache.RedisEventBuffer
	if redisClient != nil {
		bufferCfg := cache.RedisBufferConfig{
			Addr:          redisAddr,
			Password:      cfg.Cache.RedisPassword,
			DB:            cfg.Cache.RedisDB,
			FlushInterval: cfg.Events.FlushInterval,
		}
		redisBuffer, err = cache.NewRedisEventBuffer(bufferCfg, events.CreateFlushFunc(eventRepo), log)
		if err != nil {
			log.Warn("redis event buffer initialization failed", zap.Error(err))
			redisBuffer = nil
		} else {
			storeSink.SetBuffer(redisBuffer)
			log.Info("redis event buffer initialized")
		}
	}

	var eventSink scanner.EventSink = storeSink
	var kafkaSink *events.KafkaSink
	if cfg.Events.KafkaEnabled {
		kafkaSink, err = events.NewKafkaSink(events.KafkaSinkConfig{
			Brokers: cfg.Events.KafkaBrokers,
			Topic:   cfg.Events.KafkaTopic,
			Acks:    cfg.Events.KafkaAcks,
			Retries: cfg.Events.KafkaRetries,
		}, log)
		if err != nil {
			log.Warn("kafka sink initialization failed, streaming disabled", zap.Error(err))
			kafkaSink = nil
		} else {
			eventSink = events.NewMultiSink(storeSink, kafkaSink)
			log.Info("kafka sink initialized", zap.Strings("brokers", cfg.Events.KafkaBrokers))
		}
	}

	// Initialize services
	memCache := cache.NewMemoryCache()
	defer memCache.Close()

	catalogService := service.NewCatalogService(catalogRepo, memCache, cfg.Cache.TTL, log)
	orderService := service.NewOrderService(orderStateRepo, catalogService, cfg.Order.DebounceInterval, log)
	resolver := scanner.NewResolver(catalogService, eventSink, log)
	scanService := service.NewScanService(catalogService, orderService, resolver, service.ScanConfig{
		Timeout:    cfg.Scanner.Timeout,
		MinLength:  cfg.Scanner.MinLength,
		MaxLength:  cfg.Scanner.MaxLength,
		SessionTTL: cfg.Scanner.SessionTTL,
	}, log)

	cleanup := service.NewCleanupScheduler(eventRepo, service.CleanupConfig{
		RetentionMaxAge: cfg.Events.RetentionMaxAge,
		CleanupInterval: cfg.Events.CleanupInterval,
	}, log)
	cleanup.Start()

	// Serial scanner: a hardware scanner on a local port feeds a dedicated
	// session through the same pipeline the HTTP surface uses.
	var serialReader *device.SerialReader
	if cfg.Serial.Enabled {
		if cfg.Serial.CustomerID == "" || cfg.Serial.BrandID == "" {
			log.Warn("serial mode enabled but SERIAL_CUSTOMER_ID or SERIAL_BRAND_ID missing, skipping")
		} else {
			info, err := scanService.CreateSession(cfg.Serial.CustomerID, cfg.Serial.BrandID)
			if err != nil {
				log.Fatal("failed to create serial scan session", zap.Error(err))
			}
			sessionID := info.ID

			serialReader = device.NewSerialReader(cfg.Serial.Port, cfg.Serial.BaudRate, func(ev scanner.KeyEvent) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				results, err := scanService.FeedKeys(ctx, sessionID, []scanner.KeyEvent{ev})
				if err != nil {
					log.Warn("serial scan failed", zap.Error(err))
					return
				}
				for _, res := range results {
					log.Info("serial scan resolved",
						zap.String("barcode", res.Barcode),
						zap.String("outcome", res.Outcome),
						zap.Int("quantity", res.Quantity))
				}
			}, log)
			serialReader.Start()
			log.Info("serial scanner started",
				zap.String("port", cfg.Serial.Port),
				zap.String("session_id", sessionID))
		}
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, catalogRepo)
	sessionHandler := handler.NewSessionHandler(scanService)
	orderHandler := handler.NewOrderHandler(orderService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	eventsHandler := handler.NewEventsHandler(eventRepo)
	adminHandler := handler.NewAdminHandler(redisBuffer, eventRepo, catalogRepo, scanService, cfg.CatalogDB.Type, cfg.App.LoginKey)

	var authHandler *handler.AuthHandler
	if tokenService != nil && accountRepo != nil {
		authHandler = handler.NewAuthHandler(tokenService, accountRepo)
	}

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenService: tokenService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		SessionHandler: sessionHandler,
		OrderHandler:   orderHandler,
		CatalogHandler: catalogHandler,
		EventsHandler:  eventsHandler,
		AdminHandler:   adminHandler,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		Logger:         log,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	// Stop feeding scans before draining HTTP so nothing new enters the
	// pipeline while state is being flushed.
	if serialReader != nil {
		serialReader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", zap.Error(err))
	}

	scanService.Close()
	orderService.Close()
	cleanup.Stop()

	if redisBuffer != nil {
		log.Info("draining event buffer")
		redisBuffer.Close()
	}
	if kafkaSink != nil {
		kafkaSink.Close()
	}

	log.Info("server stopped")
}
