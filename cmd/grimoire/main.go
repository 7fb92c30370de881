package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.grimoire/internal/archive"
	"sudooom.grimoire/internal/auth"
	"sudooom.grimoire/internal/catalog"
	"sudooom.grimoire/internal/config"
	"sudooom.grimoire/internal/gateway"
	"sudooom.grimoire/internal/handler"
	"sudooom.grimoire/internal/health"
	"sudooom.grimoire/internal/replication"
	"sudooom.grimoire/internal/router"
	"sudooom.grimoire/internal/seat"
	"sudooom.grimoire/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr(), "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr())

	// 广播通道：配置了 NATS 时跨实例广播，否则进程内广播
	var (
		nc      *nats.Conn
		channel replication.Channel
	)
	if cfg.NATS.Enabled() {
		nc, err = replication.Connect(replication.ClientConfig{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		channel = replication.NewNATSChannel(nc, cfg.Replication.SubjectPrefix)
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	} else {
		channel = replication.NewLocalHub()
		logger.Info("NATS not configured, using in-process replication")
	}

	// 对局归档
	var (
		db       *pgxpool.Pool
		emitter  archive.Emitter
		asyncOut *archive.AsyncSink
	)
	if cfg.Database.Enabled() {
		db, err = connectDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
	}
	if cfg.Archive.Enabled {
		if db != nil {
			sink := archive.NewPostgresSink(db)
			if err := sink.EnsureSchema(ctx); err != nil {
				logger.Error("Failed to prepare archive schema", "error", err)
				os.Exit(1)
			}
			asyncOut = archive.NewAsyncSink(sink, cfg.Archive.Workers, cfg.Archive.QueueSize)
			emitter = asyncOut
		} else {
			emitter = archive.NewMemorySink()
			logger.Warn("Archive enabled without database, records kept in memory")
		}
	}

	// 角色目录
	cat, err := catalog.Default()
	if err != nil {
		logger.Error("Failed to load role catalog", "error", err)
		os.Exit(1)
	}
	if _, ok := cat.Script(cfg.Room.DefaultScript); !ok {
		logger.Error("Unknown default script", "script", cfg.Room.DefaultScript)
		os.Exit(1)
	}

	// 变更网关
	gw := gateway.New(gateway.Deps{
		Store:   store.NewRedisStore(redisClient, cfg.Room.DocumentTTL),
		Ledger:  seat.NewRedisLedger(redisClient, cfg.Room.DocumentTTL),
		Locker:  store.NewRedisLocker(redisClient, cfg.Room.LockTTL),
		Channel: channel,
		Archive: emitter,
		Catalog: cat,
	}, gateway.Options{
		MinSeats:       cfg.Room.MinSeats,
		MaxSeats:       cfg.Room.MaxSeats,
		MaxRooms:       cfg.Room.MaxRooms,
		EvictTimeout:   cfg.Room.EvictTimeout,
		ResyncInterval: cfg.Room.ResyncInterval,
		LockRetries:    3,
	})

	// HTTP / WebSocket
	jwtService := auth.NewService(cfg.JWT.SecretKey, cfg.JWT.AccessExpire)
	renderer := handler.NewRenderer(cat, cfg.Replication.EdgeFilter)
	engine := router.SetupRouter(cfg, jwtService,
		handler.NewAuthHandler(jwtService),
		handler.NewRoomHandler(gw, renderer, cfg.Room.DefaultScript),
		handler.NewWSHandler(gw, channel, renderer, cfg.CORS.AllowedOrigins),
	)
	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	// 启动健康检查 HTTP 服务
	healthChecker := health.NewChecker(nc, redisClient, db, gw)
	healthServer := &http.Server{
		Addr:              cfg.App.HealthAddr,
		Handler:           healthChecker.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go startHealthServer(healthServer, logger)

	logger.Info("Grimoire service started", "name", cfg.App.Name, "edgeFilter", cfg.Replication.EdgeFilter)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error("Gateway shutdown failed", "error", err)
	}
	if asyncOut != nil {
		asyncOut.Close()
	}
	_ = healthServer.Shutdown(shutdownCtx)
	logger.Info("Grimoire service stopped")
}

// startHealthServer 启动健康检查 HTTP 服务
func startHealthServer(server *http.Server, logger *slog.Logger) {
	logger.Info("Health check server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Health check server failed", "error", err)
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
