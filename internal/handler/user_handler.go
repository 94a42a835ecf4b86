package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/logic"
	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// UserHandler 用户处理器
type UserHandler struct {
	userLogic *logic.UserLogic
}

// NewUserHandler 创建用户处理器
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{
		userLogic: logic.NewUserLogic(db),
	}
}

// UpsertUser 创建或更新用户资料
func (h *UserHandler) UpsertUser(c *gin.Context) {
	var user model.UserModel
	if err := c.ShouldBindJSON(&user); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userLogic.UpsertUser(&user); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "用户资料已保存", user)
}

// GetUser 获取用户资料
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userLogic.GetUser(c.Param("address"))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "获取用户成功", user)
}

// VerifyUser 标记用户通过认证
func (h *UserHandler) VerifyUser(c *gin.Context) {
	if err := h.userLogic.VerifyUser(c.Param("address")); err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "用户已认证", nil)
}
