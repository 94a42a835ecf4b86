package logic

import (
	"errors"
	"fmt"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// ProductLogic 产品业务逻辑
type ProductLogic struct {
	db *gorm.DB
}

// NewProductLogic 创建产品业务逻辑
func NewProductLogic(db *gorm.DB) *ProductLogic {
	return &ProductLogic{db: db}
}

// CreateProduct 创建产品
func (p *ProductLogic) CreateProduct(product *model.ProductModel) error {
	if err := p.validateProduct(product); err != nil {
		return err
	}

	product.TotalStock = 0
	product.ReservedStock = 0
	product.AvailableStock = 0
	product.Active = true

	if err := p.db.Create(product).Error; err != nil {
		return fmt.Errorf("创建产品失败: %w", err)
	}

	return nil
}

// GetProducts 获取产品列表
func (p *ProductLogic) GetProducts(category, farmer string, activeOnly bool, page, pageSize int) ([]model.ProductModel, int64, error) {
	var products []model.ProductModel
	var total int64

	query := p.db.Model(&model.ProductModel{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if farmer != "" {
		query = query.Where("farmer_address = ?", farmer)
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取产品列表失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("获取产品列表失败: %w", err)
	}

	return products, total, nil
}

// GetProduct 获取产品详情（含批次）
func (p *ProductLogic) GetProduct(id int64) (*model.ProductModel, error) {
	var product model.ProductModel
	if err := p.db.Preload("Batches").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("产品不存在")
		}
		return nil, fmt.Errorf("获取产品详情失败: %w", err)
	}

	return &product, nil
}

// UpdateProduct 更新产品，只允许更新指定字段
func (p *ProductLogic) UpdateProduct(id int64, updates map[string]interface{}) error {
	allowed := map[string]bool{
		"name": true, "description": true, "category": true, "unit": true,
		"price": true, "low_stock_threshold": true, "auto_hide_when_out": true,
		"active": true,
	}
	for field := range updates {
		if !allowed[field] {
			return fmt.Errorf("不允许更新字段: %s", field)
		}
	}

	result := p.db.Model(&model.ProductModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新产品失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("产品不存在")
	}

	return nil
}

// validateProduct 验证产品数据
func (p *ProductLogic) validateProduct(product *model.ProductModel) error {
	if product.Name == "" {
		return errors.New("产品名称不能为空")
	}
	if product.Price < 0 {
		return errors.New("产品价格不能为负数")
	}
	if product.FarmerAddress == "" {
		return errors.New("农户地址不能为空")
	}
	return nil
}
