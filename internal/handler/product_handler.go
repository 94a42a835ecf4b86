package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// ProductHandler 农产品与库存处理器
type ProductHandler struct {
	productLogic   *logic.ProductLogic
	inventoryLogic *logic.InventoryLogic
}

// NewProductHandler 创建农产品处理器
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{
		productLogic:   logic.NewProductLogic(db),
		inventoryLogic: logic.NewInventoryLogic(db),
	}
}

// CreateProduct 创建农产品
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product model.ProductModel
	if err := c.ShouldBindJSON(&product); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.productLogic.CreateProduct(&product); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "农产品创建成功", ToProductResponse(&product))
}

// GetProducts 获取农产品列表
func (h *ProductHandler) GetProducts(c *gin.Context) {
	category := c.Query("category")
	farmer := c.Query("farmer")
	activeOnly := c.DefaultQuery("active_only", "true") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	products, total, err := h.productLogic.GetProducts(category, farmer, activeOnly, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取农产品列表成功", GetProductsResponse{
		Products:   ToProductResponseList(products),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetProduct 获取单个农产品详情（含批次）
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	product, err := h.productLogic.GetProduct(id)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取农产品详情成功", ToProductResponse(product))
}

// UpdateProduct 更新农产品
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.productLogic.UpdateProduct(id, updates); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "农产品更新成功", nil)
}

// RestockProduct 入库新批次
func (h *ProductHandler) RestockProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	var req struct {
		Quantity    int        `json:"quantity" binding:"required,gt=0"`
		HarvestDate time.Time  `json:"harvest_date" binding:"required"`
		ExpiryDate  *time.Time `json:"expiry_date"`
		Reason      string     `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.inventoryLogic.CreateBatch(id, req.Quantity, req.HarvestDate, req.ExpiryDate, req.Reason)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "入库成功", BatchResponse{
		ID:          uint(batch.Id),
		Quantity:    batch.Quantity,
		HarvestDate: batch.HarvestDate,
		ExpiryDate:  batch.ExpiryDate,
		Status:      string(batch.Status),
	})
}

// ReserveInventory 预留库存（按收获日期先进先出扣减批次）
func (h *ProductHandler) ReserveInventory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	var req struct {
		Quantity int    `json:"quantity" binding:"required,gt=0"`
		OrderId  string `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.inventoryLogic.ReserveInventory(id, req.Quantity, req.OrderId); err != nil {
		if errors.Is(err, logic.ErrInsufficientStock) {
			ErrorResponse(c, http.StatusConflict, err.Error())
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "库存预留成功", nil)
}

// ReleaseInventory 释放预留库存
func (h *ProductHandler) ReleaseInventory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	var req struct {
		Quantity int    `json:"quantity" binding:"required,gt=0"`
		OrderId  string `json:"order_id"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.inventoryLogic.ReleaseReservedInventory(id, req.Quantity, req.OrderId, req.Reason); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "库存释放成功", nil)
}

// ConfirmSale 确认销售，预留转销出
func (h *ProductHandler) ConfirmSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	var req struct {
		Quantity int    `json:"quantity" binding:"required,gt=0"`
		OrderId  string `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.inventoryLogic.ConfirmSale(id, req.Quantity, req.OrderId); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "销售确认成功", nil)
}

// GetInventoryLogs 获取库存流水
func (h *ProductHandler) GetInventoryLogs(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的产品ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	logs, total, err := h.inventoryLogic.GetInventoryLogs(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取库存流水成功", GetInventoryLogsResponse{
		Logs:       ToInventoryLogResponseList(logs),
		Pagination: newPagination(page, pageSize, total),
	})
}
