package model

import (
	"time"
)

// ProductModel 农产品模型
type ProductModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Name        string  `json:"name" gorm:"not null" binding:"required"`
	Description string  `json:"description" gorm:"type:text"`
	Category    string  `json:"category"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price" gorm:"not null" binding:"required,min=0"`

	// 农户信息
	FarmerAddress string `json:"farmer_address" gorm:"not null;index"`
	FarmerName    string `json:"farmer_name"`

	// 库存计数（available = total - reserved）
	TotalStock     int `json:"total_stock" gorm:"default:0"`
	ReservedStock  int `json:"reserved_stock" gorm:"default:0"`
	AvailableStock int `json:"available_stock" gorm:"default:0"`

	// 库存告警
	LowStockThreshold int  `json:"low_stock_threshold" gorm:"default:0"`
	AutoHideWhenOut   bool `json:"auto_hide_when_out" gorm:"default:false"`
	Active            bool `json:"active" gorm:"default:true"`

	// 关联
	Batches []BatchModel `json:"batches,omitempty" gorm:"foreignKey:ProductId"`
}

// TableName 自定义表名
func (ProductModel) TableName() string {
	return "product"
}
