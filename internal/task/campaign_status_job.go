package task

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// CampaignStatusJob 活动状态更新任务。按时间和目标金额推进镜像侧状态，
// 链上状态变化由事件监控同步
type CampaignStatusJob struct {
	db     *gorm.DB
	config *config.Config
}

// NewCampaignStatusJob 创建活动状态更新任务
func NewCampaignStatusJob(db *gorm.DB, cfg *config.Config) *CampaignStatusJob {
	return &CampaignStatusJob{
		db:     db,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *CampaignStatusJob) GetName() string {
	return "campaign_status_updater"
}

// GetSchedule 获取调度配置
func (j *CampaignStatusJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.StatusInterval) * time.Second)
}

// Execute 执行任务
func (j *CampaignStatusJob) Execute() {
	logger.Debug("Starting campaign status update task")

	now := time.Now()

	var campaigns []model.CampaignModel
	err := j.db.Where("status = ?", model.CampaignStatusActive).Find(&campaigns).Error
	if err != nil {
		logger.Error("Failed to fetch campaigns: %v", err)
		return
	}

	updatedCount := 0
	for _, campaign := range campaigns {
		var newStatus model.CampaignStatus
		shouldUpdate := false

		if now.After(campaign.EndTime) {
			if campaign.CurrentAmount >= campaign.TargetAmount {
				newStatus = model.CampaignStatusFunded
			} else {
				newStatus = model.CampaignStatusExpired
			}
			shouldUpdate = true
		} else if campaign.CurrentAmount >= campaign.TargetAmount {
			newStatus = model.CampaignStatusFunded
			shouldUpdate = true
		}

		if shouldUpdate {
			oldStatus := campaign.Status
			if err := j.db.Model(&campaign).Update("status", newStatus).Error; err != nil {
				logger.Error("Failed to update campaign %d status: %v", campaign.Id, err)
				continue
			}

			logger.Info("Updated campaign %d status from %s to %s",
				campaign.Id, oldStatus, newStatus)
			updatedCount++
		}
	}

	if updatedCount > 0 {
		logger.Info("Campaign status update completed. Updated %d campaigns", updatedCount)
	}
}
