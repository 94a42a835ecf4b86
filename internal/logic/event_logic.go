package logic

import (
	"errors"
	"fmt"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// EventLogic 链上事件记录业务逻辑
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// CheckEventExists 检查事件是否已记录（按交易哈希和日志序号去重）
func (e *EventLogic) CheckEventExists(txHash string, logIndex int64) (bool, error) {
	var count int64
	if err := e.db.Model(&model.EventModel{}).
		Where("tx_hash = ? AND log_index = ?", txHash, logIndex).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询事件失败: %w", err)
	}
	return count > 0, nil
}

// CreateEvent 保存事件记录
func (e *EventLogic) CreateEvent(event *model.EventModel) error {
	if err := e.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存事件失败: %w", err)
	}
	return nil
}

// UpdateEventProcessed 更新事件处理标记
func (e *EventLogic) UpdateEventProcessed(id int64, processed bool) error {
	if err := e.db.Model(&model.EventModel{}).Where("id = ?", id).
		Update("processed", processed).Error; err != nil {
		return fmt.Errorf("更新事件状态失败: %w", err)
	}
	return nil
}

// GetLastProcessedBlock 获取最后记录的区块号，没有记录时返回0
func (e *EventLogic) GetLastProcessedBlock() (int64, error) {
	var lastEvent model.EventModel
	err := e.db.Order("block_num DESC").First(&lastEvent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("查询最后区块失败: %w", err)
	}
	return lastEvent.BlockNum, nil
}
