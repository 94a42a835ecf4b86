package task

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"gorm.io/gorm"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	bridge    *bridge.Bridge
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, b *bridge.Bridge, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		bridge:    b,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, b *bridge.Bridge, ledger bridge.Ledger, cfg *config.Config) *Manager {
	manager := NewManager(db, b, cfg)

	// 注册所有任务
	manager.register(NewCampaignDeployJob(db, cfg, ledger))
	manager.register(NewCampaignStatusJob(db, cfg))
	manager.register(NewBatchExpiryJob(db, cfg))
	manager.register(NewReconcileJob(db, cfg, b))

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// register 注册任务
func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
