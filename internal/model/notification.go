package model

import (
	"time"
)

// NotificationModel 通知记录
type NotificationModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type     NotificationType `json:"type" gorm:"not null"`
	TargetId int64            `json:"target_id" gorm:"index"`
	Address  string           `json:"address" gorm:"index"` // 接收者地址，空表示运营通知
	Message  string           `json:"message" gorm:"type:text"`
	Read     bool             `json:"read" gorm:"default:false"`
}

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeLowStock   NotificationType = "low_stock"   // 库存不足
	NotificationTypeOutOfStock NotificationType = "out_of_stock" // 缺货
	NotificationTypeSyncDrift  NotificationType = "sync_drift"  // 账本不一致
)

// TableName 自定义表名
func (NotificationModel) TableName() string {
	return "notification"
}
