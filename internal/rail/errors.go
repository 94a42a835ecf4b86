package rail

import (
	"errors"
	"fmt"
	"strings"
)

// 用户可见的支付错误类别
var (
	ErrUserRejected      = errors.New("用户拒绝了交易")
	ErrInsufficientFunds = errors.New("余额不足")
	ErrBelowDustLimit    = errors.New("金额低于最小发送限额")
	ErrNetwork           = errors.New("网络错误，请稍后重试")
)

// ClassifyError 将钱包提供方的错误归类为用户可见错误，原始错误保留在链上
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	// 已归类的错误直接透传
	for _, sentinel := range []error{ErrUserRejected, ErrInsufficientFunds, ErrBelowDustLimit, ErrNetwork} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"),
		strings.Contains(msg, "rejected by user"):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "insufficient balance"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case strings.Contains(msg, "dust"):
		return fmt.Errorf("%w: %v", ErrBelowDustLimit, err)
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "internal json-rpc error"):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	default:
		return err
	}
}
