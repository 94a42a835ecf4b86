package rail

import (
	"context"
	"encoding/json"
	"fmt"
)

// tonBaseFee 普通消息手续费启发值（TON）
const tonBaseFee = 0.05

// TONSubmitter TON链类型的提交通道，跨链消息放在JSON cell负载中
type TONSubmitter struct {
	provider WalletProvider
	gateway  string // TON网关合约地址
}

// NewTONSubmitter 创建TON提交通道
func NewTONSubmitter(provider WalletProvider, gateway string) *TONSubmitter {
	return &TONSubmitter{provider: provider, gateway: gateway}
}

// Family 链类型
func (s *TONSubmitter) Family() ChainFamily {
	return FamilyTON
}

// Submit 构造cell负载并通过钱包提交
func (s *TONSubmitter) Submit(ctx context.Context, req Request) (*Result, error) {
	if _, err := s.provider.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect TON wallet: %w", err)
	}

	payload, err := s.encodePayload(req)
	if err != nil {
		return nil, err
	}

	txHash, err := s.provider.SignAndSend(ctx, Tx{
		To:      s.gateway,
		Amount:  req.Amount,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:         true,
		TransactionHash: txHash,
		SourceChain:     req.SourceChain,
		Amount:          req.Amount,
		ChainType:       FamilyTON,
	}, nil
}

// encodePayload JSON cell负载
func (s *TONSubmitter) encodePayload(req Request) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"op":          "contribute",
		"campaign_id": req.CampaignId,
		"reward_tier": req.RewardTier,
		"target":      req.Target,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode TON payload: %w", err)
	}
	return payload, nil
}

// EstimateFee 手续费启发值，非权威
func (s *TONSubmitter) EstimateFee(amount float64) (*Fee, error) {
	return &Fee{Amount: tonBaseFee, Currency: "TON"}, nil
}
