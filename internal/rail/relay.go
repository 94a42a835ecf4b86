package rail

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RelayProvider 通过钱包中继服务签名发送的提供方。
// 非EVM链的私钥由中继托管，本服务只传交易参数
type RelayProvider struct {
	endpoint   string
	chain      string
	httpClient *http.Client
}

// NewRelayProvider 创建钱包中继提供方
func NewRelayProvider(endpoint, chain string) *RelayProvider {
	return &RelayProvider{
		endpoint: endpoint,
		chain:    chain,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Connect 向中继请求当前链的账户地址
func (p *RelayProvider) Connect(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := p.post(ctx, "/wallet/connect", map[string]string{"chain": p.chain}, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp.Address, nil
}

// SignAndSend 把交易交给中继签名发送，返回交易哈希
func (p *RelayProvider) SignAndSend(ctx context.Context, tx Tx) (string, error) {
	req := map[string]interface{}{
		"chain":   p.chain,
		"to":      tx.To,
		"amount":  tx.Amount,
		"payload": hex.EncodeToString(tx.Payload),
	}
	var resp struct {
		TxHash string `json:"tx_hash"`
		Error  string `json:"error"`
	}
	if err := p.post(ctx, "/wallet/sign-send", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		// 中继转发钱包侧错误原文，交给分类器归一化
		return "", fmt.Errorf("%s", resp.Error)
	}
	return resp.TxHash, nil
}

func (p *RelayProvider) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
