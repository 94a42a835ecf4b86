package rail

import (
	"context"
	"fmt"

	"github.com/greenfund/gfs/internal/logger"
)

const (
	// btcDustLimit P2PKH输出的dust限额（BTC）
	btcDustLimit = 0.00000546
	// btcBaseFee 携带OP_RETURN输出的转账手续费启发值（BTC）
	btcBaseFee = 0.00005
	// opReturnMaxBytes OP_RETURN数据上限
	opReturnMaxBytes = 80
)

// BitcoinSubmitter 比特币链类型的提交通道，跨链消息放在OP_RETURN中
type BitcoinSubmitter struct {
	provider WalletProvider
	gateway  string // 比特币网关地址
}

// NewBitcoinSubmitter 创建比特币提交通道
func NewBitcoinSubmitter(provider WalletProvider, gateway string) *BitcoinSubmitter {
	return &BitcoinSubmitter{provider: provider, gateway: gateway}
}

// Family 链类型
func (s *BitcoinSubmitter) Family() ChainFamily {
	return FamilyBitcoin
}

// Submit 构造OP_RETURN消息并通过钱包提交
func (s *BitcoinSubmitter) Submit(ctx context.Context, req Request) (*Result, error) {
	fee, err := s.EstimateFee(req.Amount)
	if err != nil {
		return nil, err
	}
	if req.Amount < btcDustLimit+fee.Amount {
		return nil, fmt.Errorf("%w: 最低 %.8f BTC", ErrBelowDustLimit, btcDustLimit+fee.Amount)
	}

	if _, err := s.provider.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect Bitcoin wallet: %w", err)
	}

	txHash, err := s.provider.SignAndSend(ctx, Tx{
		To:      s.gateway,
		Amount:  req.Amount,
		Payload: s.encodePayload(req),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:         true,
		TransactionHash: txHash,
		SourceChain:     req.SourceChain,
		Amount:          req.Amount,
		ChainType:       FamilyBitcoin,
	}, nil
}

// encodePayload 构造OP_RETURN消息，超出80字节时截断回报档位
func (s *BitcoinSubmitter) encodePayload(req Request) []byte {
	payload := []byte(fmt.Sprintf("GFS:%d:%s:%s", req.CampaignId, req.RewardTier, req.Target))
	if len(payload) > opReturnMaxBytes {
		logger.Warn("OP_RETURN payload exceeds %d bytes, dropping reward tier", opReturnMaxBytes)
		payload = []byte(fmt.Sprintf("GFS:%d::%s", req.CampaignId, req.Target))
		if len(payload) > opReturnMaxBytes {
			payload = payload[:opReturnMaxBytes]
		}
	}
	return payload
}

// EstimateFee 手续费启发值，非权威
func (s *BitcoinSubmitter) EstimateFee(amount float64) (*Fee, error) {
	return &Fee{Amount: btcBaseFee, Currency: "BTC"}, nil
}

// MinimumAmount 最小可发送金额（dust限额加手续费）
func (s *BitcoinSubmitter) MinimumAmount() float64 {
	return btcDustLimit + btcBaseFee
}
