package logic

import (
	"testing"

	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBackingIsIdempotentByTxHash(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	backing := &model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0x5555555555555555555555555555555555555555",
		Amount:        100,
		Status:        model.BackingStatusConfirmed,
		TxHash:        "0xdup",
	}
	require.NoError(t, l.RecordBacking(backing))

	// 同一交易的重复事件被忽略
	duplicate := &model.BackingModel{
		CampaignId:    1,
		BackerAddress: backing.BackerAddress,
		Amount:        100,
		Status:        model.BackingStatusConfirmed,
		TxHash:        "0xdup",
	}
	require.NoError(t, l.RecordBacking(duplicate))

	var count int64
	require.NoError(t, db.Model(&model.BackingModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordBackingConfirmsPendingCrossChain(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	// 跨链提交时先落pending记录
	pending := &model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0x5555555555555555555555555555555555555555",
		Amount:        50,
		Status:        model.BackingStatusPending,
		PaymentMethod: model.PaymentMethodCrossChain,
		SourceChain:   "bitcoin",
		TxHash:        "0xcross",
	}
	require.NoError(t, db.Create(pending).Error)

	// 目标链事件到达后同哈希记录转confirmed
	require.NoError(t, l.RecordBacking(&model.BackingModel{
		CampaignId:    1,
		BackerAddress: pending.BackerAddress,
		Amount:        50,
		TxHash:        "0xcross",
		BlockNum:      1234,
	}))

	var reloaded model.BackingModel
	require.NoError(t, db.First(&reloaded, pending.Id).Error)
	assert.Equal(t, model.BackingStatusConfirmed, reloaded.Status)
	assert.Equal(t, int64(1234), reloaded.BlockNum)
	assert.Equal(t, model.PaymentMethodCrossChain, reloaded.PaymentMethod)
}

func TestRecordBackingMatchesCrossChainByBusinessKey(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	// 跨链记录持有来源链提交哈希
	pending := &model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0x5555555555555555555555555555555555555555",
		Amount:        50,
		Status:        model.BackingStatusPending,
		PaymentMethod: model.PaymentMethodCrossChain,
		SourceChain:   "bitcoin",
		TxHash:        "0xbtcsubmission",
	}
	require.NoError(t, db.Create(pending).Error)

	// 目标链事件带的是EVM侧哈希，按活动、支持人、金额匹配升级
	require.NoError(t, l.RecordBacking(&model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0x5555555555555555555555555555555555555555",
		Amount:        50,
		Status:        model.BackingStatusConfirmed,
		PaymentMethod: model.PaymentMethodDirect,
		TxHash:        "0xevmtarget",
		BlockNum:      1234,
	}))

	// 同一笔出资只留一条记录，不重复计入统计
	var count int64
	require.NoError(t, db.Model(&model.BackingModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var reloaded model.BackingModel
	require.NoError(t, db.First(&reloaded, pending.Id).Error)
	assert.Equal(t, model.BackingStatusConfirmed, reloaded.Status)
	assert.Equal(t, int64(1234), reloaded.BlockNum)
	assert.Equal(t, model.PaymentMethodCrossChain, reloaded.PaymentMethod)
	assert.Equal(t, "0xbtcsubmission", reloaded.TxHash)

	stats, err := l.GetBackingStats(1)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, stats["total_amount"], 1e-9)
	assert.Equal(t, int64(1), stats["backer_count"])
}

func TestRecordBackingUnmatchedEventCreatesDirectRow(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	// 无待确认记录可匹配的事件按直接出资落库
	require.NoError(t, l.RecordBacking(&model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0x6666666666666666666666666666666666666666",
		Amount:        75,
		Status:        model.BackingStatusConfirmed,
		PaymentMethod: model.PaymentMethodDirect,
		TxHash:        "0xdirect",
	}))

	var count int64
	require.NoError(t, db.Model(&model.BackingModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkRefunded(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	require.NoError(t, l.RecordBacking(&model.BackingModel{
		CampaignId:    1,
		BackerAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Amount:        80,
		Status:        model.BackingStatusConfirmed,
		TxHash:        "0xr1",
	}))

	require.NoError(t, l.MarkRefunded(1, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))

	var reloaded model.BackingModel
	require.NoError(t, db.Where("tx_hash = ?", "0xr1").First(&reloaded).Error)
	assert.Equal(t, model.BackingStatusRefunded, reloaded.Status)
}

func TestGetBackingStats(t *testing.T) {
	db := newTestDB(t)
	l := NewBackingLogic(db)

	backings := []*model.BackingModel{
		{CampaignId: 1, BackerAddress: "0xa1", Amount: 100, Status: model.BackingStatusConfirmed, TxHash: "0x1"},
		{CampaignId: 1, BackerAddress: "0xa1", Amount: 50, Status: model.BackingStatusConfirmed, TxHash: "0x2"},
		{CampaignId: 1, BackerAddress: "0xa2", Amount: 30, Status: model.BackingStatusConfirmed,
			PaymentMethod: model.PaymentMethodCrossChain, TxHash: "0x3"},
		{CampaignId: 1, BackerAddress: "0xa3", Amount: 999, Status: model.BackingStatusPending, TxHash: "0x4"},
	}
	for _, backing := range backings {
		require.NoError(t, db.Create(backing).Error)
	}

	stats, err := l.GetBackingStats(1)
	require.NoError(t, err)
	assert.InDelta(t, 180.0, stats["total_amount"].(float64), 1e-9)
	assert.Equal(t, int64(2), stats["backer_count"].(int64))
	assert.Equal(t, int64(1), stats["cross_chain_count"].(int64))
}
