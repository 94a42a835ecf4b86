package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/greenfund/gfs/internal/bridge"
	"github.com/greenfund/gfs/internal/config"
	"github.com/greenfund/gfs/internal/handler"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, b *bridge.Bridge, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "greenfund-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 众筹活动相关路由
		campaignHandler := handler.NewCampaignHandler(db, b)
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.GetCampaigns)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.PUT("/:id", campaignHandler.UpdateCampaign)
			campaigns.DELETE("/:id", campaignHandler.CancelCampaign)
			campaigns.POST("/:id/launch", campaignHandler.LaunchCampaign)
			campaigns.POST("/:id/back", campaignHandler.BackCampaign)
			campaigns.POST("/:id/back/crosschain", campaignHandler.BackCampaignCrossChain)
			campaigns.POST("/:id/withdraw", campaignHandler.WithdrawFunds)
			campaigns.POST("/:id/refund", campaignHandler.RequestRefund)
			campaigns.POST("/:id/milestones/:milestoneId/complete", campaignHandler.CompleteMilestone)
			campaigns.POST("/:id/sync", campaignHandler.SyncCampaign)
			campaigns.GET("/:id/consistency", campaignHandler.CheckConsistency)
			campaigns.GET("/:id/backings", campaignHandler.GetCampaignBackings)
			campaigns.GET("/:id/stats", campaignHandler.GetCampaignStats)
		}

		// 农产品与库存相关路由
		productHandler := handler.NewProductHandler(db)
		products := v1.Group("/products")
		{
			products.POST("", productHandler.CreateProduct)
			products.GET("", productHandler.GetProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.POST("/:id/restock", productHandler.RestockProduct)
			products.POST("/:id/reserve", productHandler.ReserveInventory)
			products.POST("/:id/release", productHandler.ReleaseInventory)
			products.POST("/:id/confirm-sale", productHandler.ConfirmSale)
			products.GET("/:id/inventory-logs", productHandler.GetInventoryLogs)
		}

		// 评价相关路由
		reviewHandler := handler.NewReviewHandler(db)
		reviews := v1.Group("/reviews")
		{
			reviews.POST("", reviewHandler.CreateReview)
			reviews.GET("", reviewHandler.GetReviews)
			reviews.DELETE("/:id", reviewHandler.RemoveReview)
			reviews.PATCH("/:id/moderate", reviewHandler.ModerateReview)
			reviews.GET("/rating", reviewHandler.GetRating)
		}

		// 用户相关路由
		userHandler := handler.NewUserHandler(db)
		users := v1.Group("/users")
		{
			users.POST("", userHandler.UpsertUser)
			users.GET("/:address", userHandler.GetUser)
			users.PATCH("/:address/verify", userHandler.VerifyUser)
		}

		// 通知相关路由
		notificationHandler := handler.NewNotificationHandler(db)
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}
