package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/chain"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/logger"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// EventMonitor 链上事件监控器。轮询账本合约日志，
// 事件落库后触发对应活动的对账同步
type EventMonitor struct {
	client        *chain.Client
	bridge        *bridge.Bridge
	eventLogic    *logic.EventLogic
	backingLogic  *logic.BackingLogic
	campaignLogic *logic.CampaignLogic

	interval  time.Duration
	batchSize int64

	mu        sync.RWMutex // 保护 lastBlock 的并发访问
	lastBlock int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEventMonitor 创建事件监控器
func NewEventMonitor(client *chain.Client, b *bridge.Bridge, db *gorm.DB, cfg config.MonitorConfig) *EventMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventMonitor{
		client:        client,
		bridge:        b,
		eventLogic:    logic.NewEventLogic(db),
		backingLogic:  logic.NewBackingLogic(db),
		campaignLogic: logic.NewCampaignLogic(db),
		interval:      time.Duration(cfg.Interval) * time.Second,
		batchSize:     int64(cfg.BatchSize),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start 开始监控链上事件
func (m *EventMonitor) Start() error {
	logger.Info("Starting ledger event monitor")

	// 获取最后处理的区块号
	lastBlock, err := m.eventLogic.GetLastProcessedBlock()
	if err != nil {
		logger.Warn("Failed to load last block, starting from config: %v", err)
		lastBlock = m.client.GetStartBlock()
	}
	if lastBlock == 0 {
		lastBlock = m.client.GetStartBlock()
	}

	m.mu.Lock()
	m.lastBlock = lastBlock
	m.mu.Unlock()

	logger.Info("Starting monitor from block %d", lastBlock)

	// 启动监控循环
	go m.loop()
	return nil
}

// Stop 停止监控
func (m *EventMonitor) Stop() {
	logger.Info("Stopping ledger event monitor")
	m.cancel()
}

// loop 监控循环
func (m *EventMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Monitor stopped")
			return
		case <-ticker.C:
			if err := m.processNewBlocks(); err != nil {
				logger.Error("Error processing blocks: %v", err)
				// API限流时等待更长时间
				if strings.Contains(err.Error(), "Too Many Requests") {
					logger.Warn("API rate limit hit, backing off")
					time.Sleep(time.Minute)
				}
			}
		}
	}
}

// processNewBlocks 按批处理新区块
func (m *EventMonitor) processNewBlocks() error {
	currentBlock, err := m.client.GetCurrentBlockNumber(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get current block number: %w", err)
	}

	m.mu.RLock()
	fromBlock := m.lastBlock + 1
	m.mu.RUnlock()

	for fromBlock <= currentBlock {
		toBlock := fromBlock + m.batchSize - 1
		if toBlock > currentBlock {
			toBlock = currentBlock
		}

		if err := m.processRange(fromBlock, toBlock); err != nil {
			return err
		}

		m.mu.Lock()
		m.lastBlock = toBlock
		m.mu.Unlock()

		fromBlock = toBlock + 1
	}

	return nil
}

// processRange 处理一段区块范围的日志
func (m *EventMonitor) processRange(fromBlock, toBlock int64) error {
	logs, err := m.client.GetLogs(m.ctx, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("error getting logs for blocks %d-%d: %w", fromBlock, toBlock, err)
	}

	if len(logs) == 0 {
		logger.Debug("No logs found for blocks %d-%d", fromBlock, toBlock)
		return nil
	}

	logger.Debug("Found %d logs for blocks %d-%d", len(logs), fromBlock, toBlock)

	// 按链上活动分组日志
	logsByCampaign := m.groupLogsByCampaign(logs)
	groupCount := len(logsByCampaign)
	if groupCount == 0 {
		return nil
	}

	// 创建临时协程池，大小等于分组数量
	pool, err := ants.NewPool(groupCount)
	if err != nil {
		return fmt.Errorf("failed to create pool for %d groups: %w", groupCount, err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for campaignId, campaignLogs := range logsByCampaign {
		campaignId, campaignLogs := campaignId, campaignLogs
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			m.processCampaignLogs(campaignId, campaignLogs)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit task to pool: %v", err)
		}
	}
	wg.Wait()

	return nil
}

// groupLogsByCampaign 按链上活动ID（第一个索引参数）分组
func (m *EventMonitor) groupLogsByCampaign(logs []types.Log) map[int64][]types.Log {
	grouped := make(map[int64][]types.Log)
	for _, l := range logs {
		if len(l.Topics) < 2 {
			continue
		}
		campaignId := new(big.Int).SetBytes(l.Topics[1].Bytes()).Int64()
		grouped[campaignId] = append(grouped[campaignId], l)
	}
	return grouped
}

// processCampaignLogs 顺序处理单个活动的日志
func (m *EventMonitor) processCampaignLogs(chainCampaignId int64, logs []types.Log) {
	for _, l := range logs {
		if err := m.processLog(chainCampaignId, l); err != nil {
			logger.Error("Error processing log for chain campaign %d: %v", chainCampaignId, err)
		}
	}
}

// processLog 处理单条日志
func (m *EventMonitor) processLog(chainCampaignId int64, l types.Log) error {
	eventData, err := m.client.ParseEvent(l)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	// 去重
	exists, err := m.eventLogic.CheckEventExists(l.TxHash.Hex(), int64(l.Index))
	if err != nil {
		return fmt.Errorf("failed to check if event exists: %w", err)
	}
	if exists {
		return nil
	}

	dataJSON, err := json.Marshal(serializableEventData(eventData))
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &model.EventModel{
		ContractAddress: m.client.GetContractAddr().Hex(),
		EventName:       eventData["eventName"].(string),
		TxHash:          l.TxHash.Hex(),
		BlockNum:        int64(l.BlockNumber),
		LogIndex:        int64(l.Index),
		CampaignId:      chainCampaignId,
		Data:            dataJSON,
	}
	if err := m.eventLogic.CreateEvent(event); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	logger.Info("Saved event %s for chain campaign %d in block %d",
		event.EventName, chainCampaignId, l.BlockNumber)

	if err := m.handleEvent(event, eventData); err != nil {
		return err
	}

	return m.eventLogic.UpdateEventProcessed(event.Id, true)
}

// handleEvent 按事件类型分发处理
func (m *EventMonitor) handleEvent(event *model.EventModel, eventData map[string]interface{}) error {
	campaign, err := m.campaignLogic.GetCampaignByChainId(event.CampaignId)
	if err != nil {
		// 监控到了不属于本镜像库的活动
		logger.Warn("No mirror campaign for chain campaign %d, skipping %s", event.CampaignId, event.EventName)
		return nil
	}

	switch event.EventName {
	case "ContributionMade":
		if err := m.recordContribution(campaign, event, eventData); err != nil {
			return err
		}
	case "RefundIssued":
		if backer, ok := eventData["backer"].(common.Address); ok {
			if err := m.backingLogic.MarkRefunded(campaign.Id, backer.Hex()); err != nil {
				logger.Error("Failed to mark refund for campaign %d: %v", campaign.Id, err)
			}
		}
	case "CampaignCreated", "CampaignStatusChanged", "FundsWithdrawn", "MilestoneCompleted":
		// 仅触发同步
	default:
		logger.Warn("Unknown event type: %s", event.EventName)
		return nil
	}

	// 事件驱动的对账同步
	if err := m.bridge.SyncCampaignTotals(m.ctx, campaign.Id); err != nil {
		logger.Error("Failed to sync campaign %d after %s: %v", campaign.Id, event.EventName, err)
	}

	return nil
}

// recordContribution 落库出资事件
func (m *EventMonitor) recordContribution(campaign *model.CampaignModel, event *model.EventModel, eventData map[string]interface{}) error {
	backer, ok := eventData["backer"].(common.Address)
	if !ok {
		return fmt.Errorf("ContributionMade event missing backer")
	}
	amount, ok := eventData["amount"].(*big.Int)
	if !ok {
		return fmt.Errorf("ContributionMade event missing amount")
	}

	return m.backingLogic.RecordBacking(&model.BackingModel{
		CampaignId:    campaign.Id,
		BackerAddress: backer.Hex(),
		Amount:        chain.WeiToToken(amount),
		Status:        model.BackingStatusConfirmed,
		PaymentMethod: model.PaymentMethodDirect,
		TxHash:        event.TxHash,
		BlockNum:      event.BlockNum,
	})
}

// serializableEventData 将事件数据转换为可JSON序列化的形式
func serializableEventData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch value := v.(type) {
		case *big.Int:
			out[k] = value.String()
		case common.Address:
			out[k] = value.Hex()
		default:
			out[k] = v
		}
	}
	return out
}
