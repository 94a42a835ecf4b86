package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/model"
)

// 链上活动状态枚举，对应合约里的uint8
const (
	LedgerStatusDraft     uint8 = 0
	LedgerStatusActive    uint8 = 1
	LedgerStatusFunded    uint8 = 2
	LedgerStatusExpired   uint8 = 3
	LedgerStatusCancelled uint8 = 4
	LedgerStatusCompleted uint8 = 5
)

// CampaignParams 创建链上活动的参数
type CampaignParams struct {
	Title      string
	GoalAmount float64 // 代币单位
	StartTime  time.Time
	EndTime    time.Time
	Farmer     string
}

// CampaignState 链上活动状态快照
type CampaignState struct {
	CampaignId  int64
	GoalAmount  float64
	Raised      float64
	BackerCount int64
	Status      uint8
}

// CreateResult 创建活动的结果
type CreateResult struct {
	CampaignId int64
	TxHash     string
}

// CreateCampaign 在链上创建众筹活动，等待上链后从事件中取回活动ID
func (c *Client) CreateCampaign(ctx context.Context, params CampaignParams) (*CreateResult, error) {
	tx, err := c.transact(ctx, nil, "createCampaign",
		params.Title,
		TokenToWei(params.GoalAmount),
		uint64(params.StartTime.Unix()),
		uint64(params.EndTime.Unix()),
		common.HexToAddress(params.Farmer),
	)
	if err != nil {
		return nil, err
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	// 从CampaignCreated事件中取回链上活动ID
	for _, l := range receipt.Logs {
		eventData, err := c.ParseEvent(*l)
		if err != nil {
			continue
		}
		if eventData["eventName"] != "CampaignCreated" {
			continue
		}
		id, ok := eventData["campaignId"].(*big.Int)
		if !ok {
			continue
		}
		return &CreateResult{
			CampaignId: id.Int64(),
			TxHash:     tx.Hash().Hex(),
		}, nil
	}

	return nil, fmt.Errorf("transaction %s mined but no CampaignCreated event found", tx.Hash().Hex())
}

// LaunchCampaign 启动链上活动
func (c *Client) LaunchCampaign(ctx context.Context, campaignId int64) (string, error) {
	tx, err := c.transact(ctx, nil, "launchCampaign", big.NewInt(campaignId))
	if err != nil {
		return "", err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// Contribute 向链上活动出资，amount为代币单位
func (c *Client) Contribute(ctx context.Context, campaignId int64, amount float64, rewardTier string) (string, error) {
	tx, err := c.transact(ctx, TokenToWei(amount), "contribute", big.NewInt(campaignId), rewardTier)
	if err != nil {
		return "", err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// WithdrawFunds 提取已达成活动的资金
func (c *Client) WithdrawFunds(ctx context.Context, campaignId int64) (string, error) {
	tx, err := c.transact(ctx, nil, "withdrawFunds", big.NewInt(campaignId))
	if err != nil {
		return "", err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// RequestRefund 申请退款
func (c *Client) RequestRefund(ctx context.Context, campaignId int64) (string, error) {
	tx, err := c.transact(ctx, nil, "requestRefund", big.NewInt(campaignId))
	if err != nil {
		return "", err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// CompleteMilestone 标记链上里程碑完成，解锁对应比例的资金
func (c *Client) CompleteMilestone(ctx context.Context, campaignId, milestoneId int64) (string, error) {
	tx, err := c.transact(ctx, nil, "completeMilestone", big.NewInt(campaignId), big.NewInt(milestoneId))
	if err != nil {
		return "", err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// GetCampaign 读取链上活动状态
func (c *Client) GetCampaign(ctx context.Context, campaignId int64) (*CampaignState, error) {
	values, err := c.call(ctx, "getCampaign", big.NewInt(campaignId))
	if err != nil {
		return nil, err
	}
	if len(values) < 4 {
		return nil, fmt.Errorf("unexpected getCampaign output length: %d", len(values))
	}

	goal, ok1 := values[0].(*big.Int)
	raised, ok2 := values[1].(*big.Int)
	backerCount, ok3 := values[2].(uint64)
	status, ok4 := values[3].(uint8)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("unexpected getCampaign output types")
	}

	return &CampaignState{
		CampaignId:  campaignId,
		GoalAmount:  WeiToToken(goal),
		Raised:      WeiToToken(raised),
		BackerCount: int64(backerCount),
		Status:      status,
	}, nil
}

// MapLedgerStatus 将链上状态映射为镜像库的活动状态
func MapLedgerStatus(status uint8) model.CampaignStatus {
	switch status {
	case LedgerStatusDraft:
		return model.CampaignStatusDraft
	case LedgerStatusActive:
		return model.CampaignStatusActive
	case LedgerStatusFunded:
		return model.CampaignStatusFunded
	case LedgerStatusExpired:
		return model.CampaignStatusExpired
	case LedgerStatusCancelled:
		return model.CampaignStatusCancelled
	case LedgerStatusCompleted:
		return model.CampaignStatusCompleted
	default:
		logger.Warn("Unknown ledger status: %d", status)
		return model.CampaignStatusDraft
	}
}
