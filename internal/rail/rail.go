package rail

import (
	"context"
	"fmt"
	"strings"

	"github.com/greenfund/gfs/internal/logger"
)

// ChainFamily 链类型
type ChainFamily string

const (
	FamilyEVM     ChainFamily = "evm"
	FamilyBitcoin ChainFamily = "bitcoin"
	FamilySolana  ChainFamily = "solana"
	FamilyTON     ChainFamily = "ton"
)

// ResolveFamily 根据来源链标识解析链类型
func ResolveFamily(sourceChain string) (ChainFamily, error) {
	switch strings.ToLower(sourceChain) {
	case "ethereum", "eth", "polygon", "bsc", "base", "arbitrum", "zetachain":
		return FamilyEVM, nil
	case "bitcoin", "btc":
		return FamilyBitcoin, nil
	case "solana", "sol":
		return FamilySolana, nil
	case "ton":
		return FamilyTON, nil
	default:
		return "", fmt.Errorf("不支持的来源链: %s", sourceChain)
	}
}

// Request 跨链出资请求
type Request struct {
	CampaignId  int64   `json:"campaign_id"`
	RewardTier  string  `json:"reward_tier"`
	Backer      string  `json:"backer"`
	SourceChain string  `json:"source_chain"`
	Amount      float64 `json:"amount"` // 来源链原生币单位
	Target      string  `json:"target"` // 目标合约地址（EVM格式）
}

// Result 归一化的提交结果
type Result struct {
	Success         bool        `json:"success"`
	TransactionHash string      `json:"transaction_hash"`
	SourceChain     string      `json:"source_chain"`
	Amount          float64     `json:"amount"`
	ChainType       ChainFamily `json:"chain_type"`
}

// Fee 手续费估算，非权威值
type Fee struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Tx 提交给钱包提供方的链原生交易
type Tx struct {
	To      string  // 网关地址
	Amount  float64 // 原生币单位
	Payload []byte  // 链原生编码的跨链消息
}

// WalletProvider 钱包提供方，连接/签名/发送均视为不透明操作
type WalletProvider interface {
	Connect(ctx context.Context) (string, error)
	SignAndSend(ctx context.Context, tx Tx) (string, error)
}

// Submitter 单个链类型的提交通道
type Submitter interface {
	Family() ChainFamily
	Submit(ctx context.Context, req Request) (*Result, error)
	EstimateFee(amount float64) (*Fee, error)
}

// Client 跨链支付客户端，按链类型分发到对应通道
type Client struct {
	submitters map[ChainFamily]Submitter
}

// NewClient 创建跨链支付客户端
func NewClient(submitters ...Submitter) *Client {
	m := make(map[ChainFamily]Submitter, len(submitters))
	for _, s := range submitters {
		m[s.Family()] = s
	}
	return &Client{submitters: m}
}

// SubmitContribution 校验请求并提交到对应链类型的通道
func (c *Client) SubmitContribution(ctx context.Context, req Request) (*Result, error) {
	family, err := ResolveFamily(req.SourceChain)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	submitter, ok := c.submitters[family]
	if !ok {
		return nil, fmt.Errorf("链类型 %s 没有可用的支付通道", family)
	}

	logger.Info("Submitting cross-chain contribution: campaign=%d chain=%s amount=%f",
		normalized.CampaignId, normalized.SourceChain, normalized.Amount)

	result, err := submitter.Submit(ctx, normalized)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return result, nil
}

// EstimateFee 估算指定来源链的手续费
func (c *Client) EstimateFee(sourceChain string, amount float64) (*Fee, error) {
	family, err := ResolveFamily(sourceChain)
	if err != nil {
		return nil, err
	}

	submitter, ok := c.submitters[family]
	if !ok {
		return nil, fmt.Errorf("链类型 %s 没有可用的支付通道", family)
	}

	return submitter.EstimateFee(amount)
}
