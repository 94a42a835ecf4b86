package model

import (
	"time"
)

// ReviewModel 评价记录
type ReviewModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TargetId        int64        `json:"target_id" gorm:"not null;index:idx_review_target"`
	TargetType      TargetType   `json:"target_type" gorm:"not null;index:idx_review_target"`
	ReviewerAddress string       `json:"reviewer_address" gorm:"not null"`
	Rating          int          `json:"rating" gorm:"not null" binding:"required,min=1,max=5"`
	Content         string       `json:"content" gorm:"type:text"`
	Status          ReviewStatus `json:"status" gorm:"default:'active'"`
}

// TargetType 评价对象类型
type TargetType string

const (
	TargetTypeProduct TargetType = "product" // 农产品
	TargetTypeFarmer  TargetType = "farmer"  // 农户
)

// ReviewStatus 评价状态
type ReviewStatus string

const (
	ReviewStatusActive  ReviewStatus = "active"  // 展示中
	ReviewStatusHidden  ReviewStatus = "hidden"  // 已隐藏
	ReviewStatusDeleted ReviewStatus = "deleted" // 已删除
)

// TableName 自定义表名
func (ReviewModel) TableName() string {
	return "review"
}
