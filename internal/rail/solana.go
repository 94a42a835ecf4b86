package rail

import (
	"context"
	"encoding/binary"
	"fmt"
)

// solBaseFee 单签名交易手续费启发值（SOL）
const solBaseFee = 0.000005

// solana指令判别码，与网关程序约定
var solContributeDiscriminator = [4]byte{0x01, 0x47, 0x46, 0x53}

// SolanaSubmitter Solana链类型的提交通道，跨链消息放在指令数据中
type SolanaSubmitter struct {
	provider WalletProvider
	gateway  string // 网关程序地址
}

// NewSolanaSubmitter 创建Solana提交通道
func NewSolanaSubmitter(provider WalletProvider, gateway string) *SolanaSubmitter {
	return &SolanaSubmitter{provider: provider, gateway: gateway}
}

// Family 链类型
func (s *SolanaSubmitter) Family() ChainFamily {
	return FamilySolana
}

// Submit 构造指令数据并通过钱包提交
func (s *SolanaSubmitter) Submit(ctx context.Context, req Request) (*Result, error) {
	if _, err := s.provider.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect Solana wallet: %w", err)
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
		ChainType:       FamilySolana,
	}, nil
}

// encodePayload 小端序编码：判别码 + 活动ID(u64) + 档位长度(u16) + 档位 + 目标地址
func (s *SolanaSubmitter) encodePayload(req Request) []byte {
	tier := []byte(req.RewardTier)
	target := []byte(req.Target)

	payload := make([]byte, 0, 4+8+2+len(tier)+len(target))
	payload = append(payload, solContributeDiscriminator[:]...)
	payload = binary.LittleEndian.AppendUint64(payload, uint64(req.CampaignId))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(tier)))
	payload = append(payload, tier...)
	payload = append(payload, target...)
	return payload
}

// EstimateFee 手续费启发值，非权威
func (s *SolanaSubmitter) EstimateFee(amount float64) (*Fee, error) {
	return &Fee{Amount: solBaseFee, Currency: "SOL"}, nil
}
