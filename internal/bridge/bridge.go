package bridge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
	"github.com/greenfund/gfs/internal/rail"
	"gorm.io/gorm"
)

// amountTolerance 镜像与链上金额对账的浮点容差
const amountTolerance = 0.001

// syncLeaseTTL 单个活动同步租约的有效期
const syncLeaseTTL = 30 * time.Second

// Ledger 链上账本接口，由chain.Client实现
type Ledger interface {
	CreateCampaign(ctx context.Context, params chain.CampaignParams) (*chain.CreateResult, error)
	LaunchCampaign(ctx context.Context, campaignId int64) (string, error)
	Contribute(ctx context.Context, campaignId int64, amount float64, rewardTier string) (string, error)
	WithdrawFunds(ctx context.Context, campaignId int64) (string, error)
	RequestRefund(ctx context.Context, campaignId int64) (string, error)
	CompleteMilestone(ctx context.Context, campaignId, milestoneId int64) (string, error)
	GetCampaign(ctx context.Context, campaignId int64) (*chain.CampaignState, error)
}

// Mismatch 对账发现的单项不一致
type Mismatch struct {
	Field  string      `json:"field"`
	Mirror interface{} `json:"mirror"`
	Ledger interface{} `json:"ledger"`
}

// Bridge 双账本协调器，保证镜像库与链上账本最终一致
type Bridge struct {
	db     *gorm.DB
	ledger Ledger
	rails  *rail.Client
	lease  Lease
}

// New 创建协调器
func New(db *gorm.DB, ledger Ledger, rails *rail.Client, lease Lease) *Bridge {
	if lease == nil {
		lease = NewMemoryLease()
	}
	return &Bridge{db: db, ledger: ledger, rails: rails, lease: lease}
}

// CreateCampaign 先写镜像草稿，再上链，链上ID回填镜像。
// 链上失败时镜像记录标记为error状态，从不回滚删除
func (b *Bridge) CreateCampaign(ctx context.Context, campaign *model.CampaignModel) error {
	campaign.Status = model.CampaignStatusDraft
	campaign.Web3Status = model.Web3StatusPending
	campaign.CurrentAmount = 0
	campaign.BackerCount = 0

	if err := b.db.Create(campaign).Error; err != nil {
		return fmt.Errorf("创建活动失败: %w", err)
	}

	result, err := b.ledger.CreateCampaign(ctx, chain.CampaignParams{
		Title:      campaign.Title,
		GoalAmount: campaign.TargetAmount,
		StartTime:  campaign.StartTime,
		EndTime:    campaign.EndTime,
		Farmer:     campaign.FarmerAddress,
	})
	if err != nil {
		logger.Error("Ledger create failed for campaign %d: %v", campaign.Id, err)

		// 镜像记录保留，标记错误并入队等待重试
		if annotateErr := b.db.Model(campaign).Updates(map[string]interface{}{
			"web3_status":       model.Web3StatusError,
			"blockchain_synced": false,
		}).Error; annotateErr != nil {
			logger.Error("Failed to annotate campaign %d after ledger failure: %v", campaign.Id, annotateErr)
		}
		b.enqueueIntent(campaign.Id, model.OutboxIntentDeploy, err)

		return fmt.Errorf("上链创建活动失败: %w", err)
	}

	updates := map[string]interface{}{
		"chain_campaign_id": result.CampaignId,
		"transaction_hash":  result.TxHash,
		"web3_status":       model.Web3StatusConfirmed,
		"blockchain_synced": true,
		"last_synced_at":    time.Now(),
	}
	if err := b.db.Model(campaign).Updates(updates).Error; err != nil {
		// 链上已成功，镜像回填失败只记录，留给对账任务修复
		logger.Error("Failed to backfill chain id for campaign %d: %v", campaign.Id, err)
	}
	campaign.ChainCampaignId = &result.CampaignId
	campaign.TransactionHash = result.TxHash

	logger.Info("Campaign %d created on ledger as %d (tx %s)", campaign.Id, result.CampaignId, result.TxHash)
	return nil
}

// LaunchCampaign 启动活动。链上调用成功后并发执行两次镜像更新，
// 两次写之间的部分失败只记录不补偿
func (b *Bridge) LaunchCampaign(ctx context.Context, campaignId int64) error {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return err
	}
	if campaign.ChainCampaignId == nil {
		return errors.New("活动尚未上链，无法启动")
	}

	txHash, err := b.ledger.LaunchCampaign(ctx, *campaign.ChainCampaignId)
	if err != nil {
		logger.Error("Ledger launch failed for campaign %d: %v", campaignId, err)
		return fmt.Errorf("上链启动活动失败: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := b.db.Model(&model.CampaignModel{}).Where("id = ?", campaignId).
			Update("status", model.CampaignStatusActive).Error; err != nil {
			logger.Error("Failed to flip campaign %d status after launch: %v", campaignId, err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := b.db.Model(&model.CampaignModel{}).Where("id = ?", campaignId).
			Updates(map[string]interface{}{
				"blockchain_synced": true,
				"last_synced_at":    time.Now(),
			}).Error; err != nil {
			logger.Error("Failed to flag campaign %d synced after launch: %v", campaignId, err)
		}
	}()
	wg.Wait()

	logger.Info("Campaign %d launched on ledger (tx %s)", campaignId, txHash)
	return nil
}

// BackCampaign 直接EVM支持。先上链出资，再写镜像支持记录，
// 最后从链上重新拉取总额（避免本地累加漂移）。
// 支付成功后的镜像写失败只记录不上抛
func (b *Bridge) BackCampaign(ctx context.Context, campaignId int64, backer string, amount float64, rewardTier string) (*model.BackingModel, error) {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return nil, err
	}
	if campaign.ChainCampaignId == nil {
		return nil, errors.New("活动尚未上链，无法支持")
	}
	if amount <= 0 {
		return nil, errors.New("支持金额必须大于0")
	}
	if campaign.MinBacking > 0 && amount < campaign.MinBacking {
		return nil, fmt.Errorf("支持金额不能低于 %f", campaign.MinBacking)
	}

	txHash, err := b.ledger.Contribute(ctx, *campaign.ChainCampaignId, amount, rewardTier)
	if err != nil {
		logger.Error("Ledger contribute failed for campaign %d: %v", campaignId, err)
		return nil, fmt.Errorf("上链出资失败: %w", err)
	}

	backing := &model.BackingModel{
		CampaignId:    campaignId,
		BackerAddress: backer,
		Amount:        amount,
		RewardTier:    rewardTier,
		Status:        model.BackingStatusConfirmed,
		PaymentMethod: model.PaymentMethodDirect,
		TxHash:        txHash,
	}
	if err := b.db.Create(backing).Error; err != nil {
		// 资金已上链，不能因为记账失败让用户侧失败
		logger.Error("Failed to record backing for campaign %d (tx %s): %v", campaignId, txHash, err)
	}

	if err := b.SyncCampaignTotals(ctx, campaignId); err != nil {
		logger.Error("Failed to sync totals for campaign %d after backing: %v", campaignId, err)
	}

	return backing, nil
}

// BackCampaignCrossChain 跨链支持。来源链一侧由rail客户端提交，
// 镜像侧记录支持并触发同步
func (b *Bridge) BackCampaignCrossChain(ctx context.Context, req rail.Request, backer string) (*rail.Result, error) {
	if b.rails == nil {
		return nil, errors.New("跨链支付通道未配置")
	}

	campaign, err := b.getCampaign(req.CampaignId)
	if err != nil {
		return nil, err
	}
	if campaign.ChainCampaignId == nil {
		return nil, errors.New("活动尚未上链，无法支持")
	}

	result, err := b.rails.SubmitContribution(ctx, req)
	if err != nil {
		return nil, err
	}

	backing := &model.BackingModel{
		CampaignId:    req.CampaignId,
		BackerAddress: backer,
		Amount:        result.Amount,
		RewardTier:    req.RewardTier,
		Status:        model.BackingStatusPending, // 等待跨链消息在目标链确认
		PaymentMethod: model.PaymentMethodCrossChain,
		SourceChain:   result.SourceChain,
		TxHash:        result.TransactionHash,
	}
	if err := b.db.Create(backing).Error; err != nil {
		logger.Error("Failed to record cross-chain backing for campaign %d (tx %s): %v",
			req.CampaignId, result.TransactionHash, err)
	}

	if err := b.SyncCampaignTotals(ctx, req.CampaignId); err != nil {
		logger.Error("Failed to sync totals for campaign %d after cross-chain backing: %v", req.CampaignId, err)
	}

	return result, nil
}

// WithdrawFunds 提取资金并同步镜像状态
func (b *Bridge) WithdrawFunds(ctx context.Context, campaignId int64) (string, error) {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return "", err
	}
	if campaign.ChainCampaignId == nil {
		return "", errors.New("活动尚未上链，无法提取资金")
	}

	txHash, err := b.ledger.WithdrawFunds(ctx, *campaign.ChainCampaignId)
	if err != nil {
		logger.Error("Ledger withdraw failed for campaign %d: %v", campaignId, err)
		return "", fmt.Errorf("上链提取资金失败: %w", err)
	}

	if err := b.SyncCampaignTotals(ctx, campaignId); err != nil {
		logger.Error("Failed to sync totals for campaign %d after withdraw: %v", campaignId, err)
	}

	return txHash, nil
}

// RequestRefund 为未达成的活动申请链上退款。
// 各支持记录的退款状态由事件监控收到RefundIssued后落库
func (b *Bridge) RequestRefund(ctx context.Context, campaignId int64) (string, error) {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return "", err
	}
	if campaign.ChainCampaignId == nil {
		return "", errors.New("活动尚未上链，无法申请退款")
	}

	txHash, err := b.ledger.RequestRefund(ctx, *campaign.ChainCampaignId)
	if err != nil {
		logger.Error("Ledger refund failed for campaign %d: %v", campaignId, err)
		return "", fmt.Errorf("上链申请退款失败: %w", err)
	}

	if err := b.SyncCampaignTotals(ctx, campaignId); err != nil {
		logger.Error("Failed to sync totals for campaign %d after refund: %v", campaignId, err)
	}

	return txHash, nil
}

// CompleteMilestone 标记链上里程碑完成。
// 资金释放引起的总额变化由事件监控收到MilestoneCompleted后同步
func (b *Bridge) CompleteMilestone(ctx context.Context, campaignId, milestoneId int64) (string, error) {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return "", err
	}
	if campaign.ChainCampaignId == nil {
		return "", errors.New("活动尚未上链，无法完成里程碑")
	}

	txHash, err := b.ledger.CompleteMilestone(ctx, *campaign.ChainCampaignId, milestoneId)
	if err != nil {
		logger.Error("Ledger milestone failed for campaign %d: %v", campaignId, err)
		return "", fmt.Errorf("上链完成里程碑失败: %w", err)
	}

	return txHash, nil
}

// SyncCampaignTotals 幂等的拉取式对账。按活动持租约，
// 租约被占用时跳过而不报错
func (b *Bridge) SyncCampaignTotals(ctx context.Context, campaignId int64) error {
	key := fmt.Sprintf("gfs:sync:campaign:%d", campaignId)
	acquired, err := b.lease.Acquire(ctx, key, syncLeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lease: %w", err)
	}
	if !acquired {
		logger.Debug("Sync already in progress for campaign %d, skipping", campaignId)
		return nil
	}
	defer func() {
		if err := b.lease.Release(ctx, key); err != nil {
			logger.Warn("Failed to release sync lease for campaign %d: %v", campaignId, err)
		}
	}()

	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return err
	}
	if campaign.ChainCampaignId == nil {
		return errors.New("活动尚未上链，无法同步")
	}

	state, err := b.ledger.GetCampaign(ctx, *campaign.ChainCampaignId)
	if err != nil {
		return fmt.Errorf("failed to read ledger state for campaign %d: %w", campaignId, err)
	}

	updates := map[string]interface{}{
		"current_amount":    state.Raised,
		"backer_count":      state.BackerCount,
		"blockchain_synced": true,
		"last_synced_at":    time.Now(),
	}
	// 草稿与待上链状态由镜像自己管理，其余状态跟随链上
	ledgerStatus := chain.MapLedgerStatus(state.Status)
	if campaign.Status != model.CampaignStatusDraft && campaign.Status != model.CampaignStatusDeploying {
		updates["status"] = ledgerStatus
	}

	if err := b.db.Model(&model.CampaignModel{}).Where("id = ?", campaignId).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update mirror for campaign %d: %w", campaignId, err)
	}

	logger.Debug("Synced campaign %d: raised=%f backers=%d status=%s",
		campaignId, state.Raised, state.BackerCount, ledgerStatus)
	return nil
}

// VerifyCampaignConsistency 逐字段比对镜像与链上账本，
// 只报告不修复
func (b *Bridge) VerifyCampaignConsistency(ctx context.Context, campaignId int64) ([]Mismatch, error) {
	campaign, err := b.getCampaign(campaignId)
	if err != nil {
		return nil, err
	}
	if campaign.ChainCampaignId == nil {
		return nil, errors.New("活动尚未上链，无法对账")
	}

	state, err := b.ledger.GetCampaign(ctx, *campaign.ChainCampaignId)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger state for campaign %d: %w", campaignId, err)
	}

	var mismatches []Mismatch

	if math.Abs(campaign.TargetAmount-state.GoalAmount) > amountTolerance {
		mismatches = append(mismatches, Mismatch{Field: "target_amount", Mirror: campaign.TargetAmount, Ledger: state.GoalAmount})
	}
	if math.Abs(campaign.CurrentAmount-state.Raised) > amountTolerance {
		mismatches = append(mismatches, Mismatch{Field: "current_amount", Mirror: campaign.CurrentAmount, Ledger: state.Raised})
	}
	if campaign.BackerCount != state.BackerCount {
		mismatches = append(mismatches, Mismatch{Field: "backer_count", Mirror: campaign.BackerCount, Ledger: state.BackerCount})
	}
	ledgerStatus := chain.MapLedgerStatus(state.Status)
	if campaign.Status != model.CampaignStatusDraft &&
		campaign.Status != model.CampaignStatusDeploying &&
		campaign.Status != ledgerStatus {
		mismatches = append(mismatches, Mismatch{Field: "status", Mirror: campaign.Status, Ledger: ledgerStatus})
	}

	return mismatches, nil
}

// getCampaign 读取镜像活动
func (b *Bridge) getCampaign(campaignId int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := b.db.First(&campaign, campaignId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("活动不存在")
		}
		return nil, fmt.Errorf("获取活动失败: %w", err)
	}
	return &campaign, nil
}

// enqueueIntent 上链失败后入队意图记录，由部署任务重试
func (b *Bridge) enqueueIntent(campaignId int64, intent model.OutboxIntent, cause error) {
	record := &model.OutboxModel{
		CampaignId: campaignId,
		Intent:     intent,
		Status:     model.OutboxStatusPending,
		LastError:  cause.Error(),
	}
	if err := b.db.Create(record).Error; err != nil {
		logger.Error("Failed to enqueue %s intent for campaign %d: %v", intent, campaignId, err)
	}
}
