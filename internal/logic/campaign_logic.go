package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// CampaignLogic 众筹活动业务逻辑
type CampaignLogic struct {
	db *gorm.DB
}

// NewCampaignLogic 创建活动业务逻辑
func NewCampaignLogic(db *gorm.DB) *CampaignLogic {
	return &CampaignLogic{db: db}
}

// ValidateCampaign 验证活动数据
func (c *CampaignLogic) ValidateCampaign(campaign *model.CampaignModel) error {
	if campaign.Title == "" {
		return errors.New("活动标题不能为空")
	}
	if campaign.TargetAmount <= 0 {
		return errors.New("目标金额必须大于0")
	}
	if campaign.FarmerAddress == "" {
		return errors.New("农户地址不能为空")
	}
	if campaign.StartTime.After(campaign.EndTime) {
		return errors.New("开始时间不能晚于结束时间")
	}
	if campaign.EndTime.Before(time.Now()) {
		return errors.New("结束时间不能早于当前时间")
	}
	return nil
}

// GetCampaigns 获取活动列表
func (c *CampaignLogic) GetCampaigns(status, category, farmer string, page, pageSize int) ([]model.CampaignModel, int64, error) {
	var campaigns []model.CampaignModel
	var total int64

	query := c.db.Model(&model.CampaignModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if farmer != "" {
		query = query.Where("farmer_address = ?", farmer)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取活动列表失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&campaigns).Error; err != nil {
		return nil, 0, fmt.Errorf("获取活动列表失败: %w", err)
	}

	return campaigns, total, nil
}

// GetCampaign 获取活动详情
func (c *CampaignLogic) GetCampaign(id int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := c.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("活动不存在")
		}
		return nil, fmt.Errorf("获取活动详情失败: %w", err)
	}

	return &campaign, nil
}

// GetCampaignByChainId 根据链上活动ID获取活动
func (c *CampaignLogic) GetCampaignByChainId(chainCampaignId int64) (*model.CampaignModel, error) {
	var campaign model.CampaignModel
	if err := c.db.Where("chain_campaign_id = ?", chainCampaignId).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("活动不存在")
		}
		return nil, fmt.Errorf("获取活动详情失败: %w", err)
	}

	return &campaign, nil
}

// UpdateCampaign 更新活动，只允许更新展示字段
func (c *CampaignLogic) UpdateCampaign(id int64, updates map[string]interface{}) error {
	allowed := map[string]bool{
		"title": true, "description": true, "image_url": true, "category": true,
		"farmer_name": true,
	}
	for field := range updates {
		if !allowed[field] {
			return fmt.Errorf("不允许更新字段: %s", field)
		}
	}

	result := c.db.Model(&model.CampaignModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新活动失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("活动不存在")
	}

	return nil
}

// CancelCampaign 取消活动，只允许取消未启动的活动
func (c *CampaignLogic) CancelCampaign(id int64) error {
	campaign, err := c.GetCampaign(id)
	if err != nil {
		return err
	}

	if campaign.Status != model.CampaignStatusDraft && campaign.Status != model.CampaignStatusDeploying {
		return errors.New("只能取消未启动的活动")
	}

	if err := c.db.Model(campaign).Update("status", model.CampaignStatusCancelled).Error; err != nil {
		return fmt.Errorf("取消活动失败: %w", err)
	}

	return nil
}

// GetCampaignStats 获取活动统计信息
func (c *CampaignLogic) GetCampaignStats(id int64) (map[string]interface{}, error) {
	campaign, err := c.GetCampaign(id)
	if err != nil {
		return nil, err
	}

	var backingCount int64
	c.db.Model(&model.BackingModel{}).
		Where("campaign_id = ? AND status = ?", id, model.BackingStatusConfirmed).
		Count(&backingCount)

	completionPercentage := float64(0)
	if campaign.TargetAmount > 0 {
		completionPercentage = campaign.CurrentAmount / campaign.TargetAmount * 100
	}

	remainingTime := time.Duration(0)
	if campaign.Status == model.CampaignStatusActive && time.Now().Before(campaign.EndTime) {
		remainingTime = time.Until(campaign.EndTime)
	}

	return map[string]interface{}{
		"campaign_id":           campaign.Id,
		"current_amount":        campaign.CurrentAmount,
		"target_amount":         campaign.TargetAmount,
		"completion_percentage": completionPercentage,
		"backer_count":          campaign.BackerCount,
		"backing_count":         backingCount,
		"remaining_time":        remainingTime.String(),
		"status":                campaign.Status,
		"blockchain_synced":     campaign.BlockchainSynced,
	}, nil
}
