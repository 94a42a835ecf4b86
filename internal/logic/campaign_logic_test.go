package logic

import (
	"testing"
	"time"

	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCampaignAllowsDisplayFields(t *testing.T) {
	db := newTestDB(t)
	l := NewCampaignLogic(db)

	campaign := &model.CampaignModel{
		Title:         "高山咖啡豆认购",
		TargetAmount:  1000,
		StartTime:     time.Now(),
		EndTime:       time.Now().AddDate(0, 1, 0),
		FarmerAddress: "0x9999999999999999999999999999999999999999",
		FarmerName:    "老赵",
	}
	require.NoError(t, db.Create(campaign).Error)

	require.NoError(t, l.UpdateCampaign(campaign.Id, map[string]interface{}{
		"title":       "高山咖啡豆预售",
		"farmer_name": "赵家农场",
	}))

	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Equal(t, "高山咖啡豆预售", reloaded.Title)
	assert.Equal(t, "赵家农场", reloaded.FarmerName)
}

func TestUpdateCampaignRejectsLedgerFields(t *testing.T) {
	db := newTestDB(t)
	l := NewCampaignLogic(db)

	campaign := &model.CampaignModel{
		Title:         "高山咖啡豆认购",
		TargetAmount:  1000,
		StartTime:     time.Now(),
		EndTime:       time.Now().AddDate(0, 1, 0),
		FarmerAddress: "0x9999999999999999999999999999999999999999",
	}
	require.NoError(t, db.Create(campaign).Error)

	// 金额等账本字段只能经链上流程变更
	err := l.UpdateCampaign(campaign.Id, map[string]interface{}{"target_amount": 2000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不允许更新字段")
}
