package model

import (
	"time"
)

// BatchModel 库存批次，按收获日期先进先出消耗
type BatchModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductId   int64       `json:"product_id" gorm:"not null;index"`
	Quantity    int         `json:"quantity" gorm:"not null"`
	HarvestDate time.Time   `json:"harvest_date" gorm:"not null"`
	ExpiryDate  *time.Time  `json:"expiry_date"`
	Status      BatchStatus `json:"status" gorm:"default:'available'"`
}

// BatchStatus 批次状态
type BatchStatus string

const (
	BatchStatusAvailable BatchStatus = "available" // 可用
	BatchStatusReserved  BatchStatus = "reserved"  // 已预留
	BatchStatusSold      BatchStatus = "sold"      // 已售出
	BatchStatusExpired   BatchStatus = "expired"   // 已过期
	BatchStatusDamaged   BatchStatus = "damaged"   // 已损坏
)

// TableName 自定义表名
func (BatchModel) TableName() string {
	return "batch"
}
