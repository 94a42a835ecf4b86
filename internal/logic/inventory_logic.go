package logic

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock 可用库存不足
var ErrInsufficientStock = errors.New("库存不足")

// InventoryLogic 库存业务逻辑。预留在单个数据库事务内完成，
// 保证不超卖；释放与确认为尽力而为的计数调整
type InventoryLogic struct {
	db                *gorm.DB
	notificationLogic *NotificationLogic
}

// NewInventoryLogic 创建库存业务逻辑
func NewInventoryLogic(db *gorm.DB) *InventoryLogic {
	return &InventoryLogic{
		db:                db,
		notificationLogic: NewNotificationLogic(db),
	}
}

// batchAllocation 单次预留中某批次的分配量
type batchAllocation struct {
	BatchId  int64 `json:"batch_id"`
	Quantity int   `json:"quantity"`
}

// CreateBatch 补货：新建批次并增加总库存
func (l *InventoryLogic) CreateBatch(productId int64, quantity int, harvestDate time.Time, expiryDate *time.Time, reason string) (*model.BatchModel, error) {
	if quantity <= 0 {
		return nil, errors.New("补货数量必须大于0")
	}

	batch := &model.BatchModel{
		ProductId:   productId,
		Quantity:    quantity,
		HarvestDate: harvestDate,
		ExpiryDate:  expiryDate,
		Status:      model.BatchStatusAvailable,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		product, err := getProductForUpdate(tx, productId)
		if err != nil {
			return err
		}

		if err := tx.Create(batch).Error; err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		before := *product
		product.TotalStock += quantity
		product.AvailableStock = product.TotalStock - product.ReservedStock
		if err := tx.Save(product).Error; err != nil {
			return fmt.Errorf("failed to update stock counters: %w", err)
		}

		return l.appendLog(tx, &before, product, "restock", reason, "", nil)
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// ReserveInventory 在事务内按收获日期先进先出预留库存。
// 请求超过可用库存时立即失败且不产生任何变更
func (l *InventoryLogic) ReserveInventory(productId int64, quantity int, orderId string) error {
	if quantity <= 0 {
		return errors.New("预留数量必须大于0")
	}
	if orderId == "" {
		orderId = uuid.NewString()
	}

	var updated *model.ProductModel

	err := l.db.Transaction(func(tx *gorm.DB) error {
		// 锁产品行，同一产品的并发预留串行执行
		product, err := getProductForUpdate(tx, productId)
		if err != nil {
			return err
		}

		if quantity > product.AvailableStock {
			return fmt.Errorf("%w: 请求 %d, 可用 %d", ErrInsufficientStock, quantity, product.AvailableStock)
		}

		var batches []model.BatchModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND status = ?", productId, model.BatchStatusAvailable).
			Find(&batches).Error; err != nil {
			return fmt.Errorf("failed to load batches: %w", err)
		}

		// 最老的收获批次优先
		sort.Slice(batches, func(i, j int) bool {
			return batches[i].HarvestDate.Before(batches[j].HarvestDate)
		})

		remaining := quantity
		var allocations []batchAllocation
		for i := range batches {
			if remaining == 0 {
				break
			}
			batch := &batches[i]

			take := batch.Quantity
			if take > remaining {
				take = remaining
			}

			batch.Quantity -= take
			if batch.Quantity == 0 {
				batch.Status = model.BatchStatusSold
			}
			if err := tx.Save(batch).Error; err != nil {
				return fmt.Errorf("failed to update batch %d: %w", batch.Id, err)
			}

			allocations = append(allocations, batchAllocation{BatchId: batch.Id, Quantity: take})
			remaining -= take
		}

		if remaining > 0 {
			// 计数器与批次不一致，回滚整个预留
			return fmt.Errorf("库存批次数据不一致: 缺少 %d", remaining)
		}

		before := *product
		product.ReservedStock += quantity
		product.AvailableStock = product.TotalStock - product.ReservedStock
		if err := tx.Save(product).Error; err != nil {
			return fmt.Errorf("failed to update stock counters: %w", err)
		}

		updated = product
		return l.appendLog(tx, &before, product, "reserve", "订单预留", orderId, allocations)
	})
	if err != nil {
		return err
	}

	l.afterStockDecrease(updated)
	return nil
}

// ReleaseReservedInventory 释放预留。计数调整是尽力而为的，
// 与原预留事务不具备原子性
func (l *InventoryLogic) ReleaseReservedInventory(productId int64, quantity int, orderId, reason string) error {
	if quantity <= 0 {
		return errors.New("释放数量必须大于0")
	}

	product, err := getProduct(l.db, productId)
	if err != nil {
		return err
	}

	before := *product
	if quantity > product.ReservedStock {
		logger.Warn("Release of %d exceeds reserved stock %d for product %d, clamping",
			quantity, product.ReservedStock, productId)
		quantity = product.ReservedStock
	}
	product.ReservedStock -= quantity
	product.AvailableStock = product.TotalStock - product.ReservedStock

	if err := l.db.Save(product).Error; err != nil {
		return fmt.Errorf("failed to update stock counters: %w", err)
	}

	return l.appendLog(l.db, &before, product, "release", reason, orderId, nil)
}

// ConfirmSale 确认销售，预留转为售出，总量随之减少
func (l *InventoryLogic) ConfirmSale(productId int64, quantity int, orderId string) error {
	if quantity <= 0 {
		return errors.New("确认数量必须大于0")
	}

	product, err := getProduct(l.db, productId)
	if err != nil {
		return err
	}

	before := *product
	if quantity > product.ReservedStock {
		logger.Warn("Sale confirmation of %d exceeds reserved stock %d for product %d, clamping",
			quantity, product.ReservedStock, productId)
		quantity = product.ReservedStock
	}
	product.ReservedStock -= quantity
	product.TotalStock -= quantity
	product.AvailableStock = product.TotalStock - product.ReservedStock

	if err := l.db.Save(product).Error; err != nil {
		return fmt.Errorf("failed to update stock counters: %w", err)
	}

	if err := l.appendLog(l.db, &before, product, "confirm_sale", "销售确认", orderId, nil); err != nil {
		return err
	}

	l.afterStockDecrease(product)
	return nil
}

// MarkExpiredBatches 将过期批次标记为expired并扣减库存，返回处理的批次数
func (l *InventoryLogic) MarkExpiredBatches(now time.Time) (int, error) {
	var batches []model.BatchModel
	if err := l.db.Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?",
		model.BatchStatusAvailable, now).Find(&batches).Error; err != nil {
		return 0, fmt.Errorf("failed to load expired batches: %w", err)
	}

	expired := 0
	for i := range batches {
		batch := &batches[i]
		err := l.db.Transaction(func(tx *gorm.DB) error {
			product, err := getProductForUpdate(tx, batch.ProductId)
			if err != nil {
				return err
			}

			batch.Status = model.BatchStatusExpired
			if err := tx.Save(batch).Error; err != nil {
				return fmt.Errorf("failed to expire batch %d: %w", batch.Id, err)
			}

			before := *product
			product.TotalStock -= batch.Quantity
			product.AvailableStock = product.TotalStock - product.ReservedStock
			if err := tx.Save(product).Error; err != nil {
				return fmt.Errorf("failed to update stock counters: %w", err)
			}

			return l.appendLog(tx, &before, product, "expire",
				fmt.Sprintf("批次 %d 已过期", batch.Id), "", nil)
		})
		if err != nil {
			logger.Error("Failed to mark batch %d expired: %v", batch.Id, err)
			continue
		}
		expired++

		product, err := getProduct(l.db, batch.ProductId)
		if err == nil {
			l.afterStockDecrease(product)
		}
	}

	return expired, nil
}

// GetInventoryLogs 获取产品的库存流水
func (l *InventoryLogic) GetInventoryLogs(productId int64, page, pageSize int) ([]model.InventoryLogModel, int64, error) {
	var logs []model.InventoryLogModel
	var total int64

	query := l.db.Model(&model.InventoryLogModel{}).Where("product_id = ?", productId)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取库存流水失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("获取库存流水失败: %w", err)
	}

	return logs, total, nil
}

// appendLog 追加库存流水，只增不改
func (l *InventoryLogic) appendLog(tx *gorm.DB, before, after *model.ProductModel, action, reason, orderId string, allocations []batchAllocation) error {
	var detail datatypes.JSON
	if len(allocations) > 0 {
		raw, err := json.Marshal(map[string]interface{}{"allocations": allocations})
		if err != nil {
			return fmt.Errorf("failed to marshal allocation detail: %w", err)
		}
		detail = datatypes.JSON(raw)
	}

	entry := &model.InventoryLogModel{
		ProductId:      after.Id,
		Action:         action,
		QuantityBefore: before.TotalStock,
		QuantityAfter:  after.TotalStock,
		ReservedBefore: before.ReservedStock,
		ReservedAfter:  after.ReservedStock,
		Reason:         reason,
		OrderId:        orderId,
		Detail:         detail,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append inventory log: %w", err)
	}
	return nil
}

// afterStockDecrease 库存减少后的告警检查
func (l *InventoryLogic) afterStockDecrease(product *model.ProductModel) {
	if product == nil {
		return
	}

	if product.AvailableStock <= 0 {
		l.notificationLogic.Notify(model.NotificationTypeOutOfStock, product.Id, product.FarmerAddress,
			fmt.Sprintf("产品 %s 已缺货", product.Name))

		if product.AutoHideWhenOut && product.Active {
			if err := l.db.Model(product).Update("active", false).Error; err != nil {
				logger.Error("Failed to deactivate product %d: %v", product.Id, err)
			}
		}
		return
	}

	if product.LowStockThreshold > 0 && product.AvailableStock <= product.LowStockThreshold {
		l.notificationLogic.Notify(model.NotificationTypeLowStock, product.Id, product.FarmerAddress,
			fmt.Sprintf("产品 %s 库存不足: 剩余 %d", product.Name, product.AvailableStock))
	}
}

// getProduct 读取产品
func getProduct(tx *gorm.DB, productId int64) (*model.ProductModel, error) {
	var product model.ProductModel
	if err := tx.First(&product, productId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("产品不存在")
		}
		return nil, fmt.Errorf("获取产品失败: %w", err)
	}
	return &product, nil
}

// getProductForUpdate 在事务内以SELECT FOR UPDATE读取产品行
func getProductForUpdate(tx *gorm.DB, productId int64) (*model.ProductModel, error) {
	return getProduct(tx.Clauses(clause.Locking{Strength: "UPDATE"}), productId)
}
