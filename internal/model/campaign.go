package model

import (
	"time"
)

// CampaignModel 众筹活动模型（链下镜像）
type CampaignModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`

	// 众筹信息（代币单位）
	TargetAmount  float64 `json:"target_amount" gorm:"not null" binding:"required,min=0"`
	CurrentAmount float64 `json:"current_amount" gorm:"default:0"`
	MinBacking    float64 `json:"min_backing" gorm:"default:0"`
	BackerCount   int64   `json:"backer_count" gorm:"default:0"`

	// 时间信息
	StartTime time.Time `json:"start_time" gorm:"not null"`
	EndTime   time.Time `json:"end_time" gorm:"not null"`

	// 状态
	Status CampaignStatus `json:"status" gorm:"default:'draft'"`

	// 农户信息
	FarmerAddress string `json:"farmer_address" gorm:"not null"`
	FarmerName    string `json:"farmer_name"`

	// 区块链信息
	ChainCampaignId  *int64     `json:"chain_campaign_id" gorm:"uniqueIndex"`
	ContractAddress  string     `json:"contract_address"`
	TransactionHash  string     `json:"transaction_hash"`
	Web3Status       Web3Status `json:"web3_status" gorm:"default:'pending'"`
	BlockchainSynced bool       `json:"blockchain_synced" gorm:"default:false"`
	LastSyncedAt     *time.Time `json:"last_synced_at"`
}

// CampaignStatus 活动状态
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"     // 草稿
	CampaignStatusDeploying CampaignStatus = "deploying" // 待上链
	CampaignStatusActive    CampaignStatus = "active"    // 进行中
	CampaignStatusFunded    CampaignStatus = "funded"    // 达成目标
	CampaignStatusExpired   CampaignStatus = "expired"   // 已过期
	CampaignStatusCancelled CampaignStatus = "cancelled" // 已取消
	CampaignStatusCompleted CampaignStatus = "completed" // 已完成
)

// Web3Status 上链状态
type Web3Status string

const (
	Web3StatusPending   Web3Status = "pending"   // 待上链
	Web3StatusConfirmed Web3Status = "confirmed" // 已确认
	Web3StatusError     Web3Status = "error"     // 上链失败
)

// TableName 自定义表名
func (CampaignModel) TableName() string {
	return "campaign"
}
