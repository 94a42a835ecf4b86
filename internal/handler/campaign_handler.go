package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"github.com/greenfund/gfs/internal/rail"
	"gorm.io/gorm"
)

// CampaignHandler 众筹活动处理器
type CampaignHandler struct {
	campaignLogic *logic.CampaignLogic
	backingLogic  *logic.BackingLogic
	bridge        *bridge.Bridge
}

// NewCampaignHandler 创建众筹活动处理器
func NewCampaignHandler(db *gorm.DB, b *bridge.Bridge) *CampaignHandler {
	return &CampaignHandler{
		campaignLogic: logic.NewCampaignLogic(db),
		backingLogic:  logic.NewBackingLogic(db),
		bridge:        b,
	}
}

// CreateCampaign 创建活动（镜像草稿 + 上链）
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var campaign model.CampaignModel
	if err := c.ShouldBindJSON(&campaign); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.campaignLogic.ValidateCampaign(&campaign); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 调用bridge创建活动。上链失败时镜像草稿已保留，
	// 返回错误的同时把草稿一并返回，前端可提示重试
	if err := h.bridge.CreateCampaign(c.Request.Context(), &campaign); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    err.Error(),
			"campaign": ToCampaignResponse(&campaign),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "活动创建成功",
		"campaign": ToCampaignResponse(&campaign),
	})
}

// GetCampaigns 获取活动列表
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	status := c.Query("status")
	category := c.Query("category")
	farmer := c.Query("farmer")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	campaigns, total, err := h.campaignLogic.GetCampaigns(status, category, farmer, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns": ToCampaignResponseList(campaigns),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCampaign 获取单个活动详情
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	campaign, err := h.campaignLogic.GetCampaign(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaign": ToCampaignResponse(campaign)})
}

// UpdateCampaign 更新活动（仅镜像侧展示字段）
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	// 只允许更新特定字段
	var updateData struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		ImageURL    *string `json:"image_url"`
		Category    *string `json:"category"`
		FarmerName  *string `json:"farmer_name"`
	}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if updateData.Title != nil {
		updates["title"] = *updateData.Title
	}
	if updateData.Description != nil {
		updates["description"] = *updateData.Description
	}
	if updateData.ImageURL != nil {
		updates["image_url"] = *updateData.ImageURL
	}
	if updateData.Category != nil {
		updates["category"] = *updateData.Category
	}
	if updateData.FarmerName != nil {
		updates["farmer_name"] = *updateData.FarmerName
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有要更新的字段"})
		return
	}

	if err := h.campaignLogic.UpdateCampaign(id, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "活动更新成功"})
}

// CancelCampaign 取消活动（仅限未上线活动）
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	if err := h.campaignLogic.CancelCampaign(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "活动已取消"})
}

// LaunchCampaign 启动活动
func (h *CampaignHandler) LaunchCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	if err := h.bridge.LaunchCampaign(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "活动启动成功"})
}

// BackCampaign 直接EVM支持活动
func (h *CampaignHandler) BackCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	var req struct {
		Backer     string  `json:"backer" binding:"required"`
		Amount     float64 `json:"amount" binding:"required,gt=0"`
		RewardTier string  `json:"reward_tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	backing, err := h.bridge.BackCampaign(c.Request.Context(), id, req.Backer, req.Amount, req.RewardTier)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "支持成功",
		"backing": ToBackingResponse(backing),
	})
}

// BackCampaignCrossChain 跨链支持活动
func (h *CampaignHandler) BackCampaignCrossChain(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	var req struct {
		Backer      string  `json:"backer" binding:"required"`
		SourceChain string  `json:"source_chain" binding:"required"`
		Amount      float64 `json:"amount" binding:"required,gt=0"`
		RewardTier  string  `json:"reward_tier"`
		Target      string  `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bridge.BackCampaignCrossChain(c.Request.Context(), rail.Request{
		CampaignId:  id,
		RewardTier:  req.RewardTier,
		Backer:      req.Backer,
		SourceChain: req.SourceChain,
		Amount:      req.Amount,
		Target:      req.Target,
	}, req.Backer)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "跨链支持已提交",
		"result":  result,
	})
}

// WithdrawFunds 提取资金
func (h *CampaignHandler) WithdrawFunds(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	txHash, err := h.bridge.WithdrawFunds(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "资金提取成功",
		"tx_hash": txHash,
	})
}

// RequestRefund 申请退款
func (h *CampaignHandler) RequestRefund(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	txHash, err := h.bridge.RequestRefund(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "退款申请已提交",
		"tx_hash": txHash,
	})
}

// CompleteMilestone 完成里程碑
func (h *CampaignHandler) CompleteMilestone(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}
	milestoneId, err := strconv.ParseInt(c.Param("milestoneId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的里程碑ID"})
		return
	}

	txHash, err := h.bridge.CompleteMilestone(c.Request.Context(), id, milestoneId)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "里程碑已完成",
		"tx_hash": txHash,
	})
}

// SyncCampaign 手动触发活动同步
func (h *CampaignHandler) SyncCampaign(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	if err := h.bridge.SyncCampaignTotals(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	campaign, err := h.campaignLogic.GetCampaign(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "同步完成",
		"campaign": ToCampaignResponse(campaign),
	})
}

// CheckConsistency 镜像与链上账本一致性检查（只报告不修正）
func (h *CampaignHandler) CheckConsistency(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	mismatches, err := h.bridge.VerifyCampaignConsistency(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result := ConsistencyResponse{
		Consistent: len(mismatches) == 0,
		Mismatches: make([]MismatchResponse, len(mismatches)),
	}
	for i, m := range mismatches {
		result.Mismatches[i] = MismatchResponse{Field: m.Field, Mirror: m.Mirror, Ledger: m.Ledger}
	}

	c.JSON(http.StatusOK, result)
}

// GetCampaignBackings 获取活动支持记录
func (h *CampaignHandler) GetCampaignBackings(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	backings, total, err := h.backingLogic.GetBackings(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取支持记录成功", GetBackingsResponse{
		Backings:   ToBackingResponseList(backings),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetCampaignStats 获取活动统计信息
func (h *CampaignHandler) GetCampaignStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的活动ID"})
		return
	}

	stats, err := h.campaignLogic.GetCampaignStats(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	backingStats, err := h.backingLogic.GetBackingStats(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for k, v := range backingStats {
		stats[k] = v
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
