package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/database"
	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// fakeLedger 可注入失败的链上账本替身
type fakeLedger struct {
	mu sync.Mutex

	createErr     error
	contributeErr error

	nextCampaignId int64
	states         map[int64]*chain.CampaignState
	contributions  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextCampaignId: 100,
		states:         make(map[int64]*chain.CampaignState),
	}
}

func (f *fakeLedger) CreateCampaign(ctx context.Context, params chain.CampaignParams) (*chain.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextCampaignId++
	f.states[f.nextCampaignId] = &chain.CampaignState{
		CampaignId: f.nextCampaignId,
		GoalAmount: params.GoalAmount,
		Status:     chain.LedgerStatusDraft,
	}
	return &chain.CreateResult{CampaignId: f.nextCampaignId, TxHash: "0xabc"}, nil
}

func (f *fakeLedger) LaunchCampaign(ctx context.Context, campaignId int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[campaignId]
	if !ok {
		return "", errors.New("campaign not found on ledger")
	}
	state.Status = chain.LedgerStatusActive
	return "0xlaunch", nil
}

func (f *fakeLedger) Contribute(ctx context.Context, campaignId int64, amount float64, rewardTier string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contributeErr != nil {
		return "", f.contributeErr
	}
	state, ok := f.states[campaignId]
	if !ok {
		return "", errors.New("campaign not found on ledger")
	}
	state.Raised += amount
	state.BackerCount++
	f.contributions++
	return "0xcontribute", nil
}

func (f *fakeLedger) WithdrawFunds(ctx context.Context, campaignId int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[campaignId]
	if !ok {
		return "", errors.New("campaign not found on ledger")
	}
	state.Status = chain.LedgerStatusCompleted
	return "0xwithdraw", nil
}

func (f *fakeLedger) RequestRefund(ctx context.Context, campaignId int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[campaignId]
	if !ok {
		return "", errors.New("campaign not found on ledger")
	}
	state.Status = chain.LedgerStatusCancelled
	state.Raised = 0
	state.BackerCount = 0
	return "0xrefund", nil
}

func (f *fakeLedger) CompleteMilestone(ctx context.Context, campaignId, milestoneId int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[campaignId]; !ok {
		return "", errors.New("campaign not found on ledger")
	}
	return "0xmilestone", nil
}

func (f *fakeLedger) GetCampaign(ctx context.Context, campaignId int64) (*chain.CampaignState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[campaignId]
	if !ok {
		return nil, errors.New("campaign not found on ledger")
	}
	copied := *state
	return &copied, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testCampaign() *model.CampaignModel {
	return &model.CampaignModel{
		Title:         "高山咖啡豆认购",
		TargetAmount:  1000,
		StartTime:     time.Now(),
		EndTime:       time.Now().AddDate(0, 1, 0),
		FarmerAddress: "0x9999999999999999999999999999999999999999",
	}
}

func TestCreateCampaignBackfillsChainId(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))

	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	require.NotNil(t, reloaded.ChainCampaignId)
	assert.Equal(t, int64(101), *reloaded.ChainCampaignId)
	assert.Equal(t, "0xabc", reloaded.TransactionHash)
	assert.Equal(t, model.Web3StatusConfirmed, reloaded.Web3Status)
	assert.True(t, reloaded.BlockchainSynced)
	assert.NotNil(t, reloaded.LastSyncedAt)
}

func TestCreateCampaignLedgerFailureKeepsDraft(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	ledger.createErr = errors.New("rpc unavailable")
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	err := b.CreateCampaign(context.Background(), campaign)
	require.Error(t, err)

	// 镜像草稿保留且标记错误，从不回滚
	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Equal(t, model.CampaignStatusDraft, reloaded.Status)
	assert.Equal(t, model.Web3StatusError, reloaded.Web3Status)
	assert.False(t, reloaded.BlockchainSynced)
	assert.Nil(t, reloaded.ChainCampaignId)

	// 失败意图入队，等待部署任务重试
	var outbox model.OutboxModel
	require.NoError(t, db.Where("campaign_id = ?", campaign.Id).First(&outbox).Error)
	assert.Equal(t, model.OutboxIntentDeploy, outbox.Intent)
	assert.Equal(t, model.OutboxStatusPending, outbox.Status)
	assert.Contains(t, outbox.LastError, "rpc unavailable")
}

func TestLaunchCampaignFlipsMirrorStatus(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	require.NoError(t, b.LaunchCampaign(context.Background(), campaign.Id))

	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Equal(t, model.CampaignStatusActive, reloaded.Status)
	assert.True(t, reloaded.BlockchainSynced)
}

func TestBackCampaignLedgerFirstThenMirror(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	require.NoError(t, b.LaunchCampaign(context.Background(), campaign.Id))

	backing, err := b.BackCampaign(context.Background(), campaign.Id,
		"0x5555555555555555555555555555555555555555", 150, "gold")
	require.NoError(t, err)
	assert.Equal(t, model.BackingStatusConfirmed, backing.Status)
	assert.Equal(t, model.PaymentMethodDirect, backing.PaymentMethod)

	// 总额来自链上读取，而不是本地累加
	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.InDelta(t, 150, reloaded.CurrentAmount, 1e-9)
	assert.Equal(t, int64(1), reloaded.BackerCount)
}

func TestBackCampaignLedgerFailureWritesNothing(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	ledger.contributeErr = errors.New("insufficient funds")

	_, err := b.BackCampaign(context.Background(), campaign.Id,
		"0x5555555555555555555555555555555555555555", 150, "")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.BackingModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBackCampaignRejectsBelowMinimum(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	campaign.MinBacking = 50
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))

	_, err := b.BackCampaign(context.Background(), campaign.Id,
		"0x5555555555555555555555555555555555555555", 10, "")
	require.Error(t, err)
	assert.Zero(t, ledger.contributions)
}

func TestRequestRefundSyncsMirrorTotals(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	require.NoError(t, b.LaunchCampaign(context.Background(), campaign.Id))
	_, err := b.BackCampaign(context.Background(), campaign.Id,
		"0x5555555555555555555555555555555555555555", 150, "")
	require.NoError(t, err)

	txHash, err := b.RequestRefund(context.Background(), campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, "0xrefund", txHash)

	// 镜像总额随同步归零，状态跟随链上
	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Zero(t, reloaded.CurrentAmount)
	assert.Zero(t, reloaded.BackerCount)
	assert.Equal(t, model.CampaignStatusCancelled, reloaded.Status)
}

func TestRequestRefundRequiresDeployedCampaign(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	ledger.createErr = errors.New("rpc unavailable")
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.Error(t, b.CreateCampaign(context.Background(), campaign))

	_, err := b.RequestRefund(context.Background(), campaign.Id)
	require.Error(t, err)
}

func TestVerifyCampaignConsistencyAfterSync(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	require.NoError(t, b.LaunchCampaign(context.Background(), campaign.Id))

	// 链上侧直接变动，镜像落后
	_, err := ledger.Contribute(context.Background(), *campaign.ChainCampaignId, 300, "")
	require.NoError(t, err)

	mismatches, err := b.VerifyCampaignConsistency(context.Background(), campaign.Id)
	require.NoError(t, err)
	require.NotEmpty(t, mismatches)

	// 同步后对账干净
	require.NoError(t, b.SyncCampaignTotals(context.Background(), campaign.Id))
	mismatches, err = b.VerifyCampaignConsistency(context.Background(), campaign.Id)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestSyncCampaignTotalsSkipsWhenLeaseHeld(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	lease := NewMemoryLease()
	b := New(db, ledger, nil, lease)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))
	require.NoError(t, b.LaunchCampaign(context.Background(), campaign.Id))
	_, err := ledger.Contribute(context.Background(), *campaign.ChainCampaignId, 300, "")
	require.NoError(t, err)

	// 先占住租约，同步应跳过且不报错
	key := fmt.Sprintf("gfs:sync:campaign:%d", campaign.Id)
	acquired, err := lease.Acquire(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, b.SyncCampaignTotals(context.Background(), campaign.Id))
	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Zero(t, reloaded.CurrentAmount, "skipped sync must not touch the mirror")

	// 释放后同步生效
	require.NoError(t, lease.Release(context.Background(), key))
	require.NoError(t, b.SyncCampaignTotals(context.Background(), campaign.Id))
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.InDelta(t, 300, reloaded.CurrentAmount, 1e-9)
}

func TestSyncCampaignTotalsPreservesDraftStatus(t *testing.T) {
	db := newTestDB(t)
	ledger := newFakeLedger()
	b := New(db, ledger, nil, nil)

	campaign := testCampaign()
	require.NoError(t, b.CreateCampaign(context.Background(), campaign))

	// 镜像仍是草稿，链上状态不覆盖镜像自管的阶段
	require.NoError(t, b.SyncCampaignTotals(context.Background(), campaign.Id))

	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Equal(t, model.CampaignStatusDraft, reloaded.Status)
}
