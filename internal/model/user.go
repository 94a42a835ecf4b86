package model

import (
	"time"
)

// UserModel 用户模型
type UserModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address  string `json:"address" gorm:"not null;uniqueIndex"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role" gorm:"default:'consumer'"` // consumer, farmer, admin
	Verified bool   `json:"verified" gorm:"default:false"`
}

// TableName 自定义表名
func (UserModel) TableName() string {
	return "user"
}
