package rail

import (
	"errors"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/greenfund/gfs/internal/logger"
)

var (
	// ErrInvalidAmount 金额为零或负数
	ErrInvalidAmount = errors.New("出资金额必须大于0")
	// ErrInvalidCampaignId 活动ID非法
	ErrInvalidCampaignId = errors.New("无效的活动ID")
)

// normalizeRequest 防御性校验并修正请求字段
func normalizeRequest(req Request) (Request, error) {
	if req.CampaignId <= 0 {
		return req, ErrInvalidCampaignId
	}

	amount, err := NormalizeAmount(req.Amount)
	if err != nil {
		return req, err
	}
	req.Amount = amount

	req.Target = NormalizeAddress(req.Target)
	if req.Target == "" {
		return req, errors.New("无效的目标合约地址")
	}

	return req, nil
}

// NormalizeAmount 修正金额。NaN/Inf回退为0后报错，零或负数报错
func NormalizeAmount(amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		logger.Warn("Amount is not a finite number, falling back to 0")
		amount = 0
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// NormalizeAddress 校验并修正EVM地址为校验和格式，非法地址返回空串
func NormalizeAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		logger.Warn("Invalid EVM address: %s", addr)
		return ""
	}
	checksummed := common.HexToAddress(addr).Hex()
	if checksummed != addr {
		logger.Warn("Address checksum corrected: %s -> %s", addr, checksummed)
	}
	return checksummed
}

// NormalizeQuantity 将数量字段修正为非负整数
func NormalizeQuantity(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		logger.Warn("Quantity %f is invalid, falling back to 0", value)
		return 0
	}
	return int64(math.Floor(value))
}
