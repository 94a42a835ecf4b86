package task

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// maxDeployAttempts 部署意图的最大重试次数
const maxDeployAttempts = 5

// CampaignDeployJob 活动部署任务。消费上链失败后入队的意图记录，
// 把活动重新推上链并回填镜像
type CampaignDeployJob struct {
	db     *gorm.DB
	config *config.Config
	ledger bridge.Ledger
}

// NewCampaignDeployJob 创建活动部署任务
func NewCampaignDeployJob(db *gorm.DB, cfg *config.Config, ledger bridge.Ledger) *CampaignDeployJob {
	return &CampaignDeployJob{
		db:     db,
		config: cfg,
		ledger: ledger,
	}
}

// GetName 获取任务名称
func (j *CampaignDeployJob) GetName() string {
	return "campaign_deploy_updater"
}

// GetSchedule 获取调度配置
func (j *CampaignDeployJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.DeployInterval) * time.Second)
}

// Execute 执行任务
func (j *CampaignDeployJob) Execute() {
	logger.Debug("Starting campaign deploy task")

	var intents []model.OutboxModel
	err := j.db.Where("status = ? AND intent = ?",
		model.OutboxStatusPending, model.OutboxIntentDeploy).Find(&intents).Error
	if err != nil {
		logger.Error("Failed to fetch pending deploy intents: %v", err)
		return
	}

	deployedCount := 0
	for _, intent := range intents {
		if j.processIntent(&intent) {
			deployedCount++
		}
	}

	if len(intents) > 0 {
		logger.Info("Campaign deploy task completed. Deployed %d of %d", deployedCount, len(intents))
	}
}

// processIntent 处理单条部署意图
func (j *CampaignDeployJob) processIntent(intent *model.OutboxModel) bool {
	var campaign model.CampaignModel
	if err := j.db.First(&campaign, intent.CampaignId).Error; err != nil {
		logger.Error("Failed to load campaign %d for deploy intent: %v", intent.CampaignId, err)
		return false
	}

	// 避免重复部署
	if campaign.ChainCampaignId != nil {
		j.completeIntent(intent)
		return false
	}

	result, err := j.ledger.CreateCampaign(context.Background(), chain.CampaignParams{
		Title:      campaign.Title,
		GoalAmount: campaign.TargetAmount,
		StartTime:  campaign.StartTime,
		EndTime:    campaign.EndTime,
		Farmer:     campaign.FarmerAddress,
	})
	if err != nil {
		logger.Error("Failed to deploy campaign %d to ledger: %v", campaign.Id, err)
		j.recordFailure(intent, err)
		return false
	}

	updates := map[string]interface{}{
		"chain_campaign_id": result.CampaignId,
		"transaction_hash":  result.TxHash,
		"web3_status":       model.Web3StatusConfirmed,
		"blockchain_synced": true,
		"last_synced_at":    time.Now(),
	}
	if err := j.db.Model(&campaign).Updates(updates).Error; err != nil {
		logger.Error("Failed to backfill campaign %d after deploy: %v", campaign.Id, err)
		return false
	}

	j.completeIntent(intent)
	logger.Info("Successfully deployed campaign %d to ledger as %d. TxHash: %s",
		campaign.Id, result.CampaignId, result.TxHash)
	return true
}

// completeIntent 标记意图完成
func (j *CampaignDeployJob) completeIntent(intent *model.OutboxModel) {
	if err := j.db.Model(intent).Update("status", model.OutboxStatusDone).Error; err != nil {
		logger.Error("Failed to complete intent %d: %v", intent.Id, err)
	}
}

// recordFailure 记录失败，超出重试上限后放弃
func (j *CampaignDeployJob) recordFailure(intent *model.OutboxModel, cause error) {
	updates := map[string]interface{}{
		"attempts":   intent.Attempts + 1,
		"last_error": cause.Error(),
	}
	if intent.Attempts+1 >= maxDeployAttempts {
		updates["status"] = model.OutboxStatusFailed
		logger.Warn("Deploy intent %d for campaign %d exceeded %d attempts, giving up",
			intent.Id, intent.CampaignId, maxDeployAttempts)
	}
	if err := j.db.Model(intent).Updates(updates).Error; err != nil {
		logger.Error("Failed to record intent failure %d: %v", intent.Id, err)
	}
}
