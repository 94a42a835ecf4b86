package model

import (
	"time"
)

// BackingModel 支持记录
type BackingModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId    int64         `json:"campaign_id" gorm:"not null;index"`
	BackerAddress string        `json:"backer_address" gorm:"not null"`
	Amount        float64       `json:"amount" gorm:"not null"`
	RewardTier    string        `json:"reward_tier"`
	Status        BackingStatus `json:"status" gorm:"default:'pending'"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"default:'direct'"`
	SourceChain   string        `json:"source_chain"`
	TxHash        string        `json:"tx_hash" gorm:"uniqueIndex"`
	BlockNum      int64         `json:"block_num"`
}

// BackingStatus 支持状态
type BackingStatus string

const (
	BackingStatusPending   BackingStatus = "pending"   // 待确认
	BackingStatusConfirmed BackingStatus = "confirmed" // 已确认
	BackingStatusRefunded  BackingStatus = "refunded"  // 已退款
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodDirect     PaymentMethod = "direct"     // 直接EVM钱包
	PaymentMethodCrossChain PaymentMethod = "crosschain" // 跨链支付
)

// TableName 自定义表名
func (BackingModel) TableName() string {
	return "backing"
}
