package logic

import (
	"errors"
	"fmt"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// 跨链出资匹配待确认记录时的金额容差
const crossChainAmountTolerance = 1e-3

// BackingLogic 支持记录业务逻辑
type BackingLogic struct {
	db *gorm.DB
}

// NewBackingLogic 创建支持记录业务逻辑
func NewBackingLogic(db *gorm.DB) *BackingLogic {
	return &BackingLogic{db: db}
}

// RecordBacking 记录链上出资。按交易哈希幂等，重复事件忽略。
// 跨链出资的镜像记录持有来源链提交哈希，与目标链事件哈希必然不同，
// 哈希未命中时按（活动、支持人、金额）匹配待确认记录并升级，
// 避免同一笔出资留下pending与confirmed两条记录
func (b *BackingLogic) RecordBacking(backing *model.BackingModel) error {
	if backing.CampaignId <= 0 {
		return errors.New("无效的活动ID")
	}
	if backing.Amount <= 0 {
		return errors.New("支持金额必须大于0")
	}

	var existing model.BackingModel
	err := b.db.Where("tx_hash = ?", backing.TxHash).First(&existing).Error
	if err == nil {
		// 已有记录，从pending转为confirmed
		if existing.Status == model.BackingStatusPending {
			return b.db.Model(&existing).Updates(map[string]interface{}{
				"status":    model.BackingStatusConfirmed,
				"block_num": backing.BlockNum,
			}).Error
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询支持记录失败: %w", err)
	}

	// 按业务键匹配最早的跨链待确认记录
	var pending model.BackingModel
	err = b.db.Where(
		"campaign_id = ? AND LOWER(backer_address) = LOWER(?) AND status = ? AND payment_method = ? AND ABS(amount - ?) < ?",
		backing.CampaignId, backing.BackerAddress, model.BackingStatusPending,
		model.PaymentMethodCrossChain, backing.Amount, crossChainAmountTolerance).
		Order("id").First(&pending).Error
	if err == nil {
		return b.db.Model(&pending).Updates(map[string]interface{}{
			"status":    model.BackingStatusConfirmed,
			"block_num": backing.BlockNum,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询支持记录失败: %w", err)
	}

	if err := b.db.Create(backing).Error; err != nil {
		return fmt.Errorf("创建支持记录失败: %w", err)
	}

	return nil
}

// MarkRefunded 按地址和活动标记支持为已退款
func (b *BackingLogic) MarkRefunded(campaignId int64, backerAddress string) error {
	result := b.db.Model(&model.BackingModel{}).
		Where("campaign_id = ? AND backer_address = ? AND status = ?",
			campaignId, backerAddress, model.BackingStatusConfirmed).
		Update("status", model.BackingStatusRefunded)
	if result.Error != nil {
		return fmt.Errorf("标记退款失败: %w", result.Error)
	}

	return nil
}

// GetBackings 获取活动的支持记录
func (b *BackingLogic) GetBackings(campaignId int64, page, pageSize int) ([]model.BackingModel, int64, error) {
	var backings []model.BackingModel
	var total int64

	query := b.db.Model(&model.BackingModel{}).Where("campaign_id = ?", campaignId)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取支持记录失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&backings).Error; err != nil {
		return nil, 0, fmt.Errorf("获取支持记录失败: %w", err)
	}

	return backings, total, nil
}

// GetBackingStats 获取活动的支持统计
func (b *BackingLogic) GetBackingStats(campaignId int64) (map[string]interface{}, error) {
	var totalAmount float64
	b.db.Model(&model.BackingModel{}).
		Where("campaign_id = ? AND status = ?", campaignId, model.BackingStatusConfirmed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalAmount)

	var backerCount int64
	b.db.Model(&model.BackingModel{}).
		Where("campaign_id = ? AND status = ?", campaignId, model.BackingStatusConfirmed).
		Distinct("backer_address").
		Count(&backerCount)

	var crossChainCount int64
	b.db.Model(&model.BackingModel{}).
		Where("campaign_id = ? AND payment_method = ?", campaignId, model.PaymentMethodCrossChain).
		Count(&crossChainCount)

	return map[string]interface{}{
		"total_amount":      totalAmount,
		"backer_count":      backerCount,
		"cross_chain_count": crossChainCount,
	}, nil
}
