package model

import (
	"time"
)

// OutboxModel 上链意图记录，由定时任务异步消费
type OutboxModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignId int64        `json:"campaign_id" gorm:"not null;index"`
	Intent     OutboxIntent `json:"intent" gorm:"not null"`
	Status     OutboxStatus `json:"status" gorm:"default:'pending';index"`
	Attempts   int          `json:"attempts" gorm:"default:0"`
	LastError  string       `json:"last_error" gorm:"type:text"`
}

// OutboxIntent 上链意图类型
type OutboxIntent string

const (
	OutboxIntentDeploy OutboxIntent = "deploy" // 创建链上活动
	OutboxIntentLaunch OutboxIntent = "launch" // 启动链上活动
)

// OutboxStatus 意图状态
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending" // 待处理
	OutboxStatusDone    OutboxStatus = "done"    // 已完成
	OutboxStatusFailed  OutboxStatus = "failed"  // 已放弃
)

// TableName 自定义表名
func (OutboxModel) TableName() string {
	return "outbox"
}
