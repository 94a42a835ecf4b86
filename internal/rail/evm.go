package rail

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// evm交易的gas上限启发值，连接器合约调用实测不超过此值
const evmGasLimit = 250000

// GasPricer 提供当前gas价格，由chain.Client实现
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// EVMSubmitter EVM链类型的提交通道，通过连接器合约转发跨链消息
type EVMSubmitter struct {
	provider  WalletProvider
	gasPricer GasPricer
	connector string // 连接器合约地址
	args      abi.Arguments
}

// NewEVMSubmitter 创建EVM提交通道
func NewEVMSubmitter(provider WalletProvider, gasPricer GasPricer, connector string) (*EVMSubmitter, error) {
	uint256Ty, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	stringTy, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, err
	}
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}

	return &EVMSubmitter{
		provider:  provider,
		gasPricer: gasPricer,
		connector: connector,
		args: abi.Arguments{
			{Name: "campaignId", Type: uint256Ty},
			{Name: "rewardTier", Type: stringTy},
			{Name: "target", Type: addressTy},
		},
	}, nil
}

// Family 链类型
func (s *EVMSubmitter) Family() ChainFamily {
	return FamilyEVM
}

// Submit 编码ABI消息并通过钱包提交
func (s *EVMSubmitter) Submit(ctx context.Context, req Request) (*Result, error) {
	if _, err := s.provider.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect EVM wallet: %w", err)
	}

	payload, err := s.encodePayload(req)
	if err != nil {
		return nil, err
	}

	txHash, err := s.provider.SignAndSend(ctx, Tx{
		To:      s.connector,
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
		ChainType:       FamilyEVM,
	}, nil
}

// encodePayload ABI编码活动ID、回报档位和目标合约
func (s *EVMSubmitter) encodePayload(req Request) ([]byte, error) {
	payload, err := s.args.Pack(
		big.NewInt(req.CampaignId),
		req.RewardTier,
		common.HexToAddress(req.Target),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to encode EVM payload: %w", err)
	}
	return payload, nil
}

// EstimateFee 按当前gas价格估算手续费
func (s *EVMSubmitter) EstimateFee(amount float64) (*Fee, error) {
	gasPrice, err := s.gasPricer.SuggestGasPrice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	feeWei := new(big.Int).Mul(gasPrice, big.NewInt(evmGasLimit))
	feeFloat, _ := new(big.Float).Quo(
		new(big.Float).SetInt(feeWei),
		big.NewFloat(1e18),
	).Float64()

	return &Fee{Amount: feeFloat, Currency: "ETH"}, nil
}
