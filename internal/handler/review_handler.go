package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// ReviewHandler 评价处理器
type ReviewHandler struct {
	reviewLogic *logic.ReviewLogic
}

// NewReviewHandler 创建评价处理器
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{
		reviewLogic: logic.NewReviewLogic(db),
	}
}

// CreateReview 创建评价
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var review model.ReviewModel
	if err := c.ShouldBindJSON(&review); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviewLogic.CreateReview(&review); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "评价创建成功", gin.H{"id": review.Id})
}

// RemoveReview 删除评价
func (h *ReviewHandler) RemoveReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的评价ID")
		return
	}

	if err := h.reviewLogic.RemoveReview(id); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "评价已删除", nil)
}

// ModerateReview 审核评价（隐藏或恢复）
func (h *ReviewHandler) ModerateReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的评价ID")
		return
	}

	var req struct {
		Hide *bool `json:"hide" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reviewLogic.ModerateReview(id, *req.Hide); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "评价审核完成", nil)
}

// GetReviews 获取评价列表
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	targetId, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的评价对象ID")
		return
	}
	targetType := model.TargetType(c.DefaultQuery("target_type", string(model.TargetTypeProduct)))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	reviews, total, err := h.reviewLogic.GetReviews(targetId, targetType, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取评价列表成功", GetReviewsResponse{
		Reviews:    ToReviewResponseList(reviews),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetRating 获取评分聚合
func (h *ReviewHandler) GetRating(c *gin.Context) {
	targetId, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的评价对象ID")
		return
	}
	targetType := model.TargetType(c.DefaultQuery("target_type", string(model.TargetTypeProduct)))

	rating, err := h.reviewLogic.GetRating(targetId, targetType)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取评分成功", ToRatingResponse(rating))
}
