package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/greenfund/gfs/internal/rail"
)

// KeyedWallet 用服务端私钥签名的EVM钱包，实现rail.WalletProvider
type KeyedWallet struct {
	client *Client
}

// NewKeyedWallet 创建服务端签名钱包
func NewKeyedWallet(client *Client) *KeyedWallet {
	return &KeyedWallet{client: client}
}

// Connect 返回签名账户地址
func (w *KeyedWallet) Connect(ctx context.Context) (string, error) {
	return w.client.GetAccountAddress().Hex(), nil
}

// SignAndSend 构造、签名并发送指向目标地址的原生交易
func (w *KeyedWallet) SignAndSend(ctx context.Context, tx rail.Tx) (string, error) {
	to := common.HexToAddress(tx.To)
	value := TokenToWei(tx.Amount)
	from := w.client.GetAccountAddress()

	nonce, err := w.client.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := w.client.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := w.client.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  tx.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}

	rawTx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, tx.Payload)
	signedTx, err := types.SignTx(rawTx, types.LatestSignerForChainID(w.client.chainId), w.client.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.client.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}
