package logic

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// requireStockInvariant 断言计数器之间以及计数器与批次之间的一致性
func requireStockInvariant(t *testing.T, db *gorm.DB, productId int64) {
	t.Helper()

	var product model.ProductModel
	require.NoError(t, db.First(&product, productId).Error)

	assert.Equal(t, product.TotalStock, product.AvailableStock+product.ReservedStock,
		"available + reserved must equal total")

	var batchSum int64
	require.NoError(t, db.Model(&model.BatchModel{}).
		Where("product_id = ? AND status = ?", productId, model.BatchStatusAvailable).
		Select("COALESCE(SUM(quantity), 0)").Scan(&batchSum).Error)
	assert.Equal(t, product.AvailableStock, int(batchSum),
		"sum of available batch quantities must equal available stock")
}

func TestCreateBatchIncreasesStock(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	batch, err := l.CreateBatch(product.Id, 20, time.Now().AddDate(0, 0, -1), nil, "第一批收获")
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusAvailable, batch.Status)

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 20, reloaded.TotalStock)
	assert.Equal(t, 20, reloaded.AvailableStock)
	assert.Equal(t, 0, reloaded.ReservedStock)
	requireStockInvariant(t, db, product.Id)

	_, err = l.CreateBatch(product.Id, 0, time.Now(), nil, "")
	assert.Error(t, err)
}

func TestReserveInventoryFailsFastWithoutMutation(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err := l.CreateBatch(product.Id, 5, time.Now().AddDate(0, 0, -3), nil, "")
	require.NoError(t, err)

	err = l.ReserveInventory(product.Id, 6, "order-1")
	require.ErrorIs(t, err, ErrInsufficientStock)

	// 失败不产生任何变更
	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 5, reloaded.AvailableStock)
	assert.Equal(t, 0, reloaded.ReservedStock)

	var logCount int64
	require.NoError(t, db.Model(&model.InventoryLogModel{}).
		Where("product_id = ? AND action = ?", product.Id, "reserve").Count(&logCount).Error)
	assert.Zero(t, logCount)
	requireStockInvariant(t, db, product.Id)
}

func TestReserveInventoryConsumesOldestHarvestFirst(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	// 老批次5件，新批次10件
	older, err := l.CreateBatch(product.Id, 5, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, "")
	require.NoError(t, err)
	newer, err := l.CreateBatch(product.Id, 10, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), nil, "")
	require.NoError(t, err)

	// 预留7件：老批次耗尽转sold，新批次剩8
	require.NoError(t, l.ReserveInventory(product.Id, 7, "order-7"))

	var olderReloaded, newerReloaded model.BatchModel
	require.NoError(t, db.First(&olderReloaded, older.Id).Error)
	require.NoError(t, db.First(&newerReloaded, newer.Id).Error)
	assert.Equal(t, 0, olderReloaded.Quantity)
	assert.Equal(t, model.BatchStatusSold, olderReloaded.Status)
	assert.Equal(t, 8, newerReloaded.Quantity)
	assert.Equal(t, model.BatchStatusAvailable, newerReloaded.Status)

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 15, reloaded.TotalStock)
	assert.Equal(t, 7, reloaded.ReservedStock)
	assert.Equal(t, 8, reloaded.AvailableStock)
	requireStockInvariant(t, db, product.Id)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接强制事务串行，模拟行锁下的先后次序
	sqlDB.SetMaxOpenConns(1)

	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err = l.CreateBatch(product.Id, 10, time.Now().AddDate(0, 0, -3), nil, "")
	require.NoError(t, err)

	// 两笔各要8件，库存只有10件，最多只能成功一笔
	var succeeded int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.ReserveInventory(product.Id, 8, "") == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded)

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 8, reloaded.ReservedStock)
	assert.Equal(t, 2, reloaded.AvailableStock)
	requireStockInvariant(t, db, product.Id)
}

func TestReserveInventorySkipsSoldBatches(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	first, err := l.CreateBatch(product.Id, 3, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), nil, "")
	require.NoError(t, err)
	_, err = l.CreateBatch(product.Id, 4, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), nil, "")
	require.NoError(t, err)

	// 耗尽第一批
	require.NoError(t, l.ReserveInventory(product.Id, 3, "order-a"))
	var firstReloaded model.BatchModel
	require.NoError(t, db.First(&firstReloaded, first.Id).Error)
	require.Equal(t, model.BatchStatusSold, firstReloaded.Status)

	// 后续预留只走第二批
	require.NoError(t, l.ReserveInventory(product.Id, 2, "order-b"))
	require.NoError(t, db.First(&firstReloaded, first.Id).Error)
	assert.Equal(t, 0, firstReloaded.Quantity)
	requireStockInvariant(t, db, product.Id)
}

func TestReserveInventoryGeneratesOrderId(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err := l.CreateBatch(product.Id, 5, time.Now(), nil, "")
	require.NoError(t, err)

	require.NoError(t, l.ReserveInventory(product.Id, 1, ""))

	var entry model.InventoryLogModel
	require.NoError(t, db.Where("product_id = ? AND action = ?", product.Id, "reserve").
		First(&entry).Error)
	assert.NotEmpty(t, entry.OrderId)
	assert.NotEmpty(t, entry.Detail)
}

func TestReleaseReservedInventoryClamps(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err := l.CreateBatch(product.Id, 10, time.Now(), nil, "")
	require.NoError(t, err)
	require.NoError(t, l.ReserveInventory(product.Id, 4, "order-r"))

	// 释放超过预留量时收敛到预留量
	require.NoError(t, l.ReleaseReservedInventory(product.Id, 9, "order-r", "订单取消"))

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 0, reloaded.ReservedStock)
	assert.Equal(t, 10, reloaded.TotalStock)
	assert.Equal(t, 10, reloaded.AvailableStock)
}

func TestConfirmSaleDecreasesTotal(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err := l.CreateBatch(product.Id, 10, time.Now(), nil, "")
	require.NoError(t, err)
	require.NoError(t, l.ReserveInventory(product.Id, 4, "order-s"))

	require.NoError(t, l.ConfirmSale(product.Id, 4, "order-s"))

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 6, reloaded.TotalStock)
	assert.Equal(t, 0, reloaded.ReservedStock)
	assert.Equal(t, 6, reloaded.AvailableStock)
	requireStockInvariant(t, db, product.Id)
}

func TestMarkExpiredBatches(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	past := time.Now().AddDate(0, 0, -1)
	future := time.Now().AddDate(0, 0, 30)
	expiredBatch, err := l.CreateBatch(product.Id, 6, time.Now().AddDate(0, 0, -10), &past, "")
	require.NoError(t, err)
	freshBatch, err := l.CreateBatch(product.Id, 4, time.Now(), &future, "")
	require.NoError(t, err)

	count, err := l.MarkExpiredBatches(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var reloadedExpired, reloadedFresh model.BatchModel
	require.NoError(t, db.First(&reloadedExpired, expiredBatch.Id).Error)
	require.NoError(t, db.First(&reloadedFresh, freshBatch.Id).Error)
	assert.Equal(t, model.BatchStatusExpired, reloadedExpired.Status)
	assert.Equal(t, model.BatchStatusAvailable, reloadedFresh.Status)

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Equal(t, 4, reloaded.TotalStock)
	assert.Equal(t, 4, reloaded.AvailableStock)
	requireStockInvariant(t, db, product.Id)
}

func TestOutOfStockNotificationAndAutoHide(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, &model.ProductModel{
		Name:            "限量蜂蜜",
		Price:           30,
		FarmerAddress:   "0x2222222222222222222222222222222222222222",
		AutoHideWhenOut: true,
	})

	_, err := l.CreateBatch(product.Id, 2, time.Now(), nil, "")
	require.NoError(t, err)
	require.NoError(t, l.ReserveInventory(product.Id, 2, "order-x"))

	var reloaded model.ProductModel
	require.NoError(t, db.First(&reloaded, product.Id).Error)
	assert.Zero(t, reloaded.AvailableStock)
	assert.False(t, reloaded.Active, "out-of-stock product with auto-hide should be deactivated")

	var notification model.NotificationModel
	require.NoError(t, db.Where("type = ? AND target_id = ?",
		model.NotificationTypeOutOfStock, product.Id).First(&notification).Error)
	assert.Equal(t, product.FarmerAddress, notification.Address)
}

func TestLowStockNotification(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, &model.ProductModel{
		Name:              "散养鸡蛋",
		Price:             8,
		FarmerAddress:     "0x3333333333333333333333333333333333333333",
		LowStockThreshold: 3,
	})

	_, err := l.CreateBatch(product.Id, 10, time.Now(), nil, "")
	require.NoError(t, err)
	require.NoError(t, l.ReserveInventory(product.Id, 8, "order-low"))

	var notification model.NotificationModel
	require.NoError(t, db.Where("type = ? AND target_id = ?",
		model.NotificationTypeLowStock, product.Id).First(&notification).Error)
	assert.Contains(t, notification.Message, "库存不足")
}

func TestInventoryLogIsAppendOnlyTrail(t *testing.T) {
	db := newTestDB(t)
	l := NewInventoryLogic(db)
	product := createTestProduct(t, db, nil)

	_, err := l.CreateBatch(product.Id, 10, time.Now(), nil, "补货")
	require.NoError(t, err)
	require.NoError(t, l.ReserveInventory(product.Id, 3, "order-t"))
	require.NoError(t, l.ReleaseReservedInventory(product.Id, 1, "order-t", "部分取消"))
	require.NoError(t, l.ConfirmSale(product.Id, 2, "order-t"))

	logs, total, err := l.GetInventoryLogs(product.Id, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	actions := make([]string, len(logs))
	for i, entry := range logs {
		actions[i] = entry.Action
	}
	// 倒序返回
	assert.Equal(t, []string{"confirm_sale", "release", "reserve", "restock"}, actions)

	// 每条流水前后计数衔接
	for _, entry := range logs {
		assert.GreaterOrEqual(t, entry.QuantityAfter, 0)
		assert.GreaterOrEqual(t, entry.ReservedAfter, 0)
	}
}
