package chain

import (
	"math/big"
)

// weiPerToken 1个代币对应的wei数量
var weiPerToken = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// TokenToWei 将代币单位金额转换为wei
func TokenToWei(amount float64) *big.Int {
	wei := new(big.Float).Mul(big.NewFloat(amount), weiPerToken)
	result, _ := wei.Int(nil)
	return result
}

// WeiToToken 将wei转换为代币单位金额
func WeiToToken(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	token := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerToken)
	result, _ := token.Float64()
	return result
}
