package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/logic"
	"gorm.io/gorm"
)

// BatchExpiryJob 批次过期处理任务
type BatchExpiryJob struct {
	db             *gorm.DB
	config         *config.Config
	inventoryLogic *logic.InventoryLogic
}

// NewBatchExpiryJob 创建批次过期处理任务
func NewBatchExpiryJob(db *gorm.DB, cfg *config.Config) *BatchExpiryJob {
	return &BatchExpiryJob{
		db:             db,
		config:         cfg,
		inventoryLogic: logic.NewInventoryLogic(db),
	}
}

// GetName 获取任务名称
func (j *BatchExpiryJob) GetName() string {
	return "batch_expiry_processor"
}

// GetSchedule 获取调度配置
func (j *BatchExpiryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.ExpiryInterval) * time.Second)
}

// Execute 执行任务
func (j *BatchExpiryJob) Execute() {
	logger.Debug("Starting batch expiry task")

	expired, err := j.inventoryLogic.MarkExpiredBatches(time.Now())
	if err != nil {
		logger.Error("Batch expiry task failed: %v", err)
		return
	}

	if expired > 0 {
		logger.Info("Batch expiry task completed. Marked %d batches expired", expired)
	}
}
