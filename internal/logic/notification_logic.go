package logic

import (
	"fmt"

	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// NotificationLogic 通知业务逻辑
type NotificationLogic struct {
	db *gorm.DB
}

// NewNotificationLogic 创建通知业务逻辑
func NewNotificationLogic(db *gorm.DB) *NotificationLogic {
	return &NotificationLogic{db: db}
}

// Notify 写入通知，失败只记录不上抛
func (n *NotificationLogic) Notify(typ model.NotificationType, targetId int64, address, message string) {
	notification := &model.NotificationModel{
		Type:     typ,
		TargetId: targetId,
		Address:  address,
		Message:  message,
	}
	if err := n.db.Create(notification).Error; err != nil {
		logger.Error("Failed to create %s notification for target %d: %v", typ, targetId, err)
	}
}

// GetNotifications 获取指定地址的通知列表
func (n *NotificationLogic) GetNotifications(address string, unreadOnly bool, page, pageSize int) ([]model.NotificationModel, int64, error) {
	var notifications []model.NotificationModel
	var total int64

	query := n.db.Model(&model.NotificationModel{}).Where("address = ?", address)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取通知列表失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("获取通知列表失败: %w", err)
	}

	return notifications, total, nil
}

// MarkRead 标记通知已读
func (n *NotificationLogic) MarkRead(id int64) error {
	result := n.db.Model(&model.NotificationModel{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("标记通知已读失败: %w", result.Error)
	}
	return nil
}
