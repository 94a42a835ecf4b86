package main

import (
	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/database"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/monitor"
	"github.com/greenfund/gfs/internal/rail"
	"github.com/greenfund/gfs/internal/router"
	"github.com/greenfund/gfs/internal/task"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志器
	initLogger(cfg.Log)

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化链客户端
	chainClient, err := chain.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize chain client: %v", err)
	}

	// 同步租约：配置了redis用分布式租约，否则退化为进程内租约
	var lease bridge.Lease
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lease = bridge.NewRedisLease(redisClient)
		logger.Info("Using redis sync lease at %s", cfg.Redis.Addr)
	}

	// 跨链支付通道
	rails, err := buildRails(chainClient, cfg.Rail)
	if err != nil {
		logger.Fatal("Failed to initialize payment rails: %v", err)
	}

	// 双账本协调器
	b := bridge.New(db, chainClient, rails, lease)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, b, cfg)

	// 启动链上事件监控
	eventMonitor := monitor.NewEventMonitor(chainClient, b, db, cfg.Monitor)
	if err := eventMonitor.Start(); err != nil {
		logger.Fatal("Failed to start event monitor: %v", err)
	}

	// 启动定时任务
	task.Start(db, b, chainClient, cfg)

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// initLogger 按配置初始化默认日志器
func initLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	var l *logger.Logger
	var err error
	if cfg.Output == "file" {
		l, err = logger.NewWithRotation(level, logger.RotationConfig{Filename: cfg.File})
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}

// buildRails 组装各链类型的支付通道。
// EVM用服务端私钥直签，其余链类型经钱包中继，未配置中继时不注册
func buildRails(chainClient *chain.Client, cfg config.RailConfig) (*rail.Client, error) {
	evmSubmitter, err := rail.NewEVMSubmitter(chain.NewKeyedWallet(chainClient), chainClient, cfg.EVMConnector)
	if err != nil {
		return nil, err
	}

	submitters := []rail.Submitter{evmSubmitter}
	if cfg.WalletRelayUrl != "" {
		submitters = append(submitters,
			rail.NewBitcoinSubmitter(rail.NewRelayProvider(cfg.WalletRelayUrl, "bitcoin"), cfg.BitcoinGateway),
			rail.NewSolanaSubmitter(rail.NewRelayProvider(cfg.WalletRelayUrl, "solana"), cfg.SolanaGateway),
			rail.NewTONSubmitter(rail.NewRelayProvider(cfg.WalletRelayUrl, "ton"), cfg.TONGateway),
		)
	}

	return rail.NewClient(submitters...), nil
}
