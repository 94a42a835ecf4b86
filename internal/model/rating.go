package model

import (
	"time"
)

// RatingModel 评分聚合，随评价增删增量维护
type RatingModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TargetId   int64      `json:"target_id" gorm:"not null;uniqueIndex:idx_rating_target"`
	TargetType TargetType `json:"target_type" gorm:"not null;uniqueIndex:idx_rating_target"`

	Count   int64   `json:"count" gorm:"default:0"`
	Average float64 `json:"average" gorm:"default:0"`

	// 1-5星分布
	Star1 int64 `json:"star1" gorm:"default:0"`
	Star2 int64 `json:"star2" gorm:"default:0"`
	Star3 int64 `json:"star3" gorm:"default:0"`
	Star4 int64 `json:"star4" gorm:"default:0"`
	Star5 int64 `json:"star5" gorm:"default:0"`
}

// TableName 自定义表名
func (RatingModel) TableName() string {
	return "rating"
}
