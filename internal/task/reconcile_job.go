package task

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// ReconcileJob 账本对账任务。定期把镜像库与链上账本比对，拉链上数据回写镜像，
// 比对仍有差异的记录漂移通知，不做自动修正
type ReconcileJob struct {
	db                *gorm.DB
	config            *config.Config
	bridge            *bridge.Bridge
	notificationLogic *logic.NotificationLogic
}

// NewReconcileJob 创建账本对账任务
func NewReconcileJob(db *gorm.DB, cfg *config.Config, b *bridge.Bridge) *ReconcileJob {
	return &ReconcileJob{
		db:                db,
		config:            cfg,
		bridge:            b,
		notificationLogic: logic.NewNotificationLogic(db),
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "ledger_reconciler"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.ReconcileInterval) * time.Second)
}

// Execute 执行任务
func (j *ReconcileJob) Execute() {
	logger.Debug("Starting ledger reconcile task")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var campaigns []model.CampaignModel
	err := j.db.Where("chain_campaign_id IS NOT NULL AND status IN ?", []model.CampaignStatus{
		model.CampaignStatusActive,
		model.CampaignStatusFunded,
	}).Find(&campaigns).Error
	if err != nil {
		logger.Error("Failed to fetch campaigns for reconcile: %v", err)
		return
	}

	synced, drifted := 0, 0
	for _, campaign := range campaigns {
		if err := j.bridge.SyncCampaignTotals(ctx, campaign.Id); err != nil {
			logger.Error("Failed to sync campaign %d: %v", campaign.Id, err)
			continue
		}
		synced++

		mismatches, err := j.bridge.VerifyCampaignConsistency(ctx, campaign.Id)
		if err != nil {
			logger.Error("Failed to verify campaign %d: %v", campaign.Id, err)
			continue
		}
		if len(mismatches) == 0 {
			continue
		}

		drifted++
		for _, m := range mismatches {
			logger.Warn("Campaign %d drift on %s: mirror=%v ledger=%v",
				campaign.Id, m.Field, m.Mirror, m.Ledger)
		}
		j.notificationLogic.Notify(model.NotificationTypeSyncDrift, campaign.Id, campaign.FarmerAddress,
			fmt.Sprintf("活动 %s 镜像与链上账本存在 %d 处差异", campaign.Title, len(mismatches)))
	}

	if synced > 0 {
		logger.Info("Ledger reconcile completed. Synced %d campaigns, %d with drift", synced, drifted)
	}
}
