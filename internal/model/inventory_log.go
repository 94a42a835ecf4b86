package model

import (
	"time"

	"gorm.io/datatypes"
)

// InventoryLogModel 库存流水，只追加不修改
type InventoryLogModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProductId      int64          `json:"product_id" gorm:"not null;index"`
	Action         string         `json:"action" gorm:"not null"` // restock, reserve, release, confirm_sale, expire, damage
	QuantityBefore int            `json:"quantity_before"`
	QuantityAfter  int            `json:"quantity_after"`
	ReservedBefore int            `json:"reserved_before"`
	ReservedAfter  int            `json:"reserved_after"`
	Reason         string         `json:"reason" gorm:"type:text"`
	OrderId        string         `json:"order_id" gorm:"index"`
	Detail         datatypes.JSON `json:"detail"`
}

// TableName 自定义表名
func (InventoryLogModel) TableName() string {
	return "inventory_log"
}
