package logic

import (
	"errors"
	"fmt"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// UserLogic 用户业务逻辑
type UserLogic struct {
	db *gorm.DB
}

// NewUserLogic 创建用户业务逻辑
func NewUserLogic(db *gorm.DB) *UserLogic {
	return &UserLogic{db: db}
}

// UpsertUser 按钱包地址创建或更新用户资料
func (u *UserLogic) UpsertUser(user *model.UserModel) error {
	if user.Address == "" {
		return errors.New("钱包地址不能为空")
	}

	var existing model.UserModel
	err := u.db.Where("address = ?", user.Address).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if user.Role == "" {
			user.Role = "consumer"
		}
		if err := u.db.Create(user).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("查询用户失败: %w", err)
	}

	updates := map[string]interface{}{}
	if user.Name != "" {
		updates["name"] = user.Name
	}
	if user.Email != "" {
		updates["email"] = user.Email
	}
	if len(updates) > 0 {
		if err := u.db.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("更新用户失败: %w", err)
		}
	}
	*user = existing
	return nil
}

// GetUser 按钱包地址获取用户
func (u *UserLogic) GetUser(address string) (*model.UserModel, error) {
	var user model.UserModel
	if err := u.db.Where("address = ?", address).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户不存在")
		}
		return nil, fmt.Errorf("获取用户失败: %w", err)
	}
	return &user, nil
}

// VerifyUser 标记用户已通过认证（农户入驻审核）
func (u *UserLogic) VerifyUser(address string) error {
	result := u.db.Model(&model.UserModel{}).Where("address = ?", address).
		Update("verified", true)
	if result.Error != nil {
		return fmt.Errorf("认证用户失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("用户不存在")
	}
	return nil
}
