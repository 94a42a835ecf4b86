package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/database"
	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// stubLedger 只支持创建活动的账本替身
type stubLedger struct {
	createErr error
	created   int
}

func (s *stubLedger) CreateCampaign(ctx context.Context, params chain.CampaignParams) (*chain.CreateResult, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created++
	return &chain.CreateResult{CampaignId: int64(200 + s.created), TxHash: "0xdeploy"}, nil
}

func (s *stubLedger) LaunchCampaign(ctx context.Context, campaignId int64) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubLedger) Contribute(ctx context.Context, campaignId int64, amount float64, rewardTier string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubLedger) WithdrawFunds(ctx context.Context, campaignId int64) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubLedger) RequestRefund(ctx context.Context, campaignId int64) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubLedger) CompleteMilestone(ctx context.Context, campaignId, milestoneId int64) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubLedger) GetCampaign(ctx context.Context, campaignId int64) (*chain.CampaignState, error) {
	return nil, errors.New("not implemented")
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

func testConfig() *config.Config {
	return &config.Config{
		Task: config.TaskConfig{
			DeployInterval:    60,
			StatusInterval:    60,
			ExpiryInterval:    3600,
			ReconcileInterval: 300,
		},
	}
}

func seedDraftWithIntent(t *testing.T, db *gorm.DB) *model.CampaignModel {
	t.Helper()
	campaign := &model.CampaignModel{
		Title:         "草莓大棚扩建",
		TargetAmount:  500,
		StartTime:     time.Now(),
		EndTime:       time.Now().AddDate(0, 1, 0),
		Status:        model.CampaignStatusDraft,
		Web3Status:    model.Web3StatusError,
		FarmerAddress: "0x8888888888888888888888888888888888888888",
	}
	require.NoError(t, db.Create(campaign).Error)
	require.NoError(t, db.Create(&model.OutboxModel{
		CampaignId: campaign.Id,
		Intent:     model.OutboxIntentDeploy,
		Status:     model.OutboxStatusPending,
		LastError:  "rpc unavailable",
	}).Error)
	return campaign
}

func TestDeployJobRetriesPendingIntent(t *testing.T) {
	db := newTestDB(t)
	ledger := &stubLedger{}
	campaign := seedDraftWithIntent(t, db)

	NewCampaignDeployJob(db, testConfig(), ledger).Execute()

	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	require.NotNil(t, reloaded.ChainCampaignId)
	assert.Equal(t, model.Web3StatusConfirmed, reloaded.Web3Status)
	assert.True(t, reloaded.BlockchainSynced)

	var intent model.OutboxModel
	require.NoError(t, db.Where("campaign_id = ?", campaign.Id).First(&intent).Error)
	assert.Equal(t, model.OutboxStatusDone, intent.Status)
}

func TestDeployJobGivesUpAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	ledger := &stubLedger{createErr: errors.New("still down")}
	campaign := seedDraftWithIntent(t, db)

	job := NewCampaignDeployJob(db, testConfig(), ledger)
	for i := 0; i < maxDeployAttempts; i++ {
		job.Execute()
	}

	var intent model.OutboxModel
	require.NoError(t, db.Where("campaign_id = ?", campaign.Id).First(&intent).Error)
	assert.Equal(t, model.OutboxStatusFailed, intent.Status)
	assert.Equal(t, maxDeployAttempts, intent.Attempts)
	assert.Contains(t, intent.LastError, "still down")

	// 放弃后不再重试
	job.Execute()
	require.NoError(t, db.Where("campaign_id = ?", campaign.Id).First(&intent).Error)
	assert.Equal(t, maxDeployAttempts, intent.Attempts)
}

func TestDeployJobSkipsAlreadyDeployedCampaign(t *testing.T) {
	db := newTestDB(t)
	ledger := &stubLedger{}
	campaign := seedDraftWithIntent(t, db)

	chainId := int64(777)
	require.NoError(t, db.Model(campaign).Update("chain_campaign_id", chainId).Error)

	NewCampaignDeployJob(db, testConfig(), ledger).Execute()

	assert.Zero(t, ledger.created, "already deployed campaign must not be redeployed")

	var intent model.OutboxModel
	require.NoError(t, db.Where("campaign_id = ?", campaign.Id).First(&intent).Error)
	assert.Equal(t, model.OutboxStatusDone, intent.Status)
}

func TestStatusJobTransitions(t *testing.T) {
	db := newTestDB(t)

	past := time.Now().AddDate(0, 0, -1)
	future := time.Now().AddDate(0, 1, 0)
	campaigns := []*model.CampaignModel{
		// 到期且达标 → funded
		{Title: "a", TargetAmount: 100, CurrentAmount: 120, Status: model.CampaignStatusActive,
			StartTime: past.AddDate(0, -1, 0), EndTime: past, FarmerAddress: "0xf1"},
		// 到期未达标 → expired
		{Title: "b", TargetAmount: 100, CurrentAmount: 10, Status: model.CampaignStatusActive,
			StartTime: past.AddDate(0, -1, 0), EndTime: past, FarmerAddress: "0xf2"},
		// 未到期但达标 → funded
		{Title: "c", TargetAmount: 100, CurrentAmount: 100, Status: model.CampaignStatusActive,
			StartTime: past, EndTime: future, FarmerAddress: "0xf3"},
		// 未到期未达标 → 不变
		{Title: "d", TargetAmount: 100, CurrentAmount: 50, Status: model.CampaignStatusActive,
			StartTime: past, EndTime: future, FarmerAddress: "0xf4"},
		// 非active状态不处理
		{Title: "e", TargetAmount: 100, CurrentAmount: 200, Status: model.CampaignStatusDraft,
			StartTime: past, EndTime: past, FarmerAddress: "0xf5"},
	}
	for _, campaign := range campaigns {
		require.NoError(t, db.Create(campaign).Error)
	}

	NewCampaignStatusJob(db, testConfig()).Execute()

	want := []model.CampaignStatus{
		model.CampaignStatusFunded,
		model.CampaignStatusExpired,
		model.CampaignStatusFunded,
		model.CampaignStatusActive,
		model.CampaignStatusDraft,
	}
	for i, campaign := range campaigns {
		var reloaded model.CampaignModel
		require.NoError(t, db.First(&reloaded, campaign.Id).Error)
		assert.Equal(t, want[i], reloaded.Status, campaign.Title)
	}
}
