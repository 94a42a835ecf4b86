package handler

import (
	"time"

	"github.com/greenfund/gfs/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// 活动相关响应模型

// CampaignResponse 活动响应模型
type CampaignResponse struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ImageURL         string     `json:"imageUrl"`
	Category         string     `json:"category"`
	Farmer           string     `json:"farmer"`
	FarmerName       string     `json:"farmerName"`
	TargetAmount     float64    `json:"targetAmount"`
	CurrentAmount    float64    `json:"currentAmount"`
	MinBacking       float64    `json:"minBacking"`
	BackerCount      int64      `json:"backerCount"`
	Status           string     `json:"status"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          time.Time  `json:"endTime"`
	ChainCampaignId  *int64     `json:"chainCampaignId"`
	TransactionHash  string     `json:"transactionHash"`
	Web3Status       string     `json:"web3Status"`
	BlockchainSynced bool       `json:"blockchainSynced"`
	LastSyncedAt     *time.Time `json:"lastSyncedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// GetCampaignsResponse 获取活动列表响应
type GetCampaignsResponse struct {
	Campaigns  []CampaignResponse `json:"campaigns"`
	Pagination Pagination         `json:"pagination"`
}

// BackCampaignResponse 支持活动响应
type BackCampaignResponse struct {
	Backing BackingResponse `json:"backing"`
}

// ConsistencyResponse 账本一致性检查响应
type ConsistencyResponse struct {
	Consistent bool               `json:"consistent"`
	Mismatches []MismatchResponse `json:"mismatches"`
}

// MismatchResponse 单个字段的差异
type MismatchResponse struct {
	Field  string      `json:"field"`
	Mirror interface{} `json:"mirror"`
	Ledger interface{} `json:"ledger"`
}

// 支持记录相关响应模型

// BackingResponse 支持记录响应模型
type BackingResponse struct {
	ID            uint      `json:"id"`
	CampaignID    uint      `json:"campaignId"`
	Backer        string    `json:"backer"`
	Amount        float64   `json:"amount"`
	RewardTier    string    `json:"rewardTier"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	SourceChain   string    `json:"sourceChain,omitempty"`
	TxHash        string    `json:"txHash"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GetBackingsResponse 获取支持记录响应
type GetBackingsResponse struct {
	Backings   []BackingResponse `json:"backings"`
	Pagination Pagination        `json:"pagination"`
}

// 农产品相关响应模型

// ProductResponse 农产品响应模型
type ProductResponse struct {
	ID                uint            `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	Price             float64         `json:"price"`
	Farmer            string          `json:"farmer"`
	FarmerName        string          `json:"farmerName"`
	TotalStock        int             `json:"totalStock"`
	ReservedStock     int             `json:"reservedStock"`
	AvailableStock    int             `json:"availableStock"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	Active            bool            `json:"active"`
	Batches           []BatchResponse `json:"batches,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// BatchResponse 批次响应模型
type BatchResponse struct {
	ID          uint       `json:"id"`
	Quantity    int        `json:"quantity"`
	HarvestDate time.Time  `json:"harvestDate"`
	ExpiryDate  *time.Time `json:"expiryDate"`
	Status      string     `json:"status"`
}

// GetProductsResponse 获取农产品列表响应
type GetProductsResponse struct {
	Products   []ProductResponse `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

// InventoryLogResponse 库存流水响应模型
type InventoryLogResponse struct {
	ID             uint      `json:"id"`
	Action         string    `json:"action"`
	QuantityBefore int       `json:"quantityBefore"`
	QuantityAfter  int       `json:"quantityAfter"`
	ReservedBefore int       `json:"reservedBefore"`
	ReservedAfter  int       `json:"reservedAfter"`
	Reason         string    `json:"reason"`
	OrderID        string    `json:"orderId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GetInventoryLogsResponse 获取库存流水响应
type GetInventoryLogsResponse struct {
	Logs       []InventoryLogResponse `json:"logs"`
	Pagination Pagination             `json:"pagination"`
}

// 评价相关响应模型

// ReviewResponse 评价响应模型
type ReviewResponse struct {
	ID        uint      `json:"id"`
	TargetID  uint      `json:"targetId"`
	Reviewer  string    `json:"reviewer"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetReviewsResponse 获取评价列表响应
type GetReviewsResponse struct {
	Reviews    []ReviewResponse `json:"reviews"`
	Pagination Pagination       `json:"pagination"`
}

// RatingResponse 评分聚合响应模型
type RatingResponse struct {
	Count        int64           `json:"count"`
	Average      float64         `json:"average"`
	Distribution map[string]int64 `json:"distribution"`
}

// 转换函数

// ToCampaignResponse 将数据库模型转换为响应模型
func ToCampaignResponse(campaign *model.CampaignModel) CampaignResponse {
	return CampaignResponse{
		ID:               uint(campaign.Id),
		Title:            campaign.Title,
		Description:      campaign.Description,
		ImageURL:         campaign.ImageURL,
		Category:         campaign.Category,
		Farmer:           campaign.FarmerAddress,
		FarmerName:       campaign.FarmerName,
		TargetAmount:     campaign.TargetAmount,
		CurrentAmount:    campaign.CurrentAmount,
		MinBacking:       campaign.MinBacking,
		BackerCount:      campaign.BackerCount,
		Status:           string(campaign.Status),
		StartTime:        campaign.StartTime,
		EndTime:          campaign.EndTime,
		ChainCampaignId:  campaign.ChainCampaignId,
		TransactionHash:  campaign.TransactionHash,
		Web3Status:       string(campaign.Web3Status),
		BlockchainSynced: campaign.BlockchainSynced,
		LastSyncedAt:     campaign.LastSyncedAt,
		CreatedAt:        campaign.CreatedAt,
		UpdatedAt:        campaign.UpdatedAt,
	}
}

// ToCampaignResponseList 将数据库模型列表转换为响应模型列表
func ToCampaignResponseList(campaigns []model.CampaignModel) []CampaignResponse {
	result := make([]CampaignResponse, len(campaigns))
	for i, campaign := range campaigns {
		result[i] = ToCampaignResponse(&campaign)
	}
	return result
}

// ToBackingResponse 将支持记录数据库模型转换为响应模型
func ToBackingResponse(backing *model.BackingModel) BackingResponse {
	return BackingResponse{
		ID:            uint(backing.Id),
		CampaignID:    uint(backing.CampaignId),
		Backer:        backing.BackerAddress,
		Amount:        backing.Amount,
		RewardTier:    backing.RewardTier,
		Status:        string(backing.Status),
		PaymentMethod: string(backing.PaymentMethod),
		SourceChain:   backing.SourceChain,
		TxHash:        backing.TxHash,
		CreatedAt:     backing.CreatedAt,
	}
}

// ToBackingResponseList 将支持记录数据库模型列表转换为响应模型列表
func ToBackingResponseList(backings []model.BackingModel) []BackingResponse {
	result := make([]BackingResponse, len(backings))
	for i, backing := range backings {
		result[i] = ToBackingResponse(&backing)
	}
	return result
}

// ToProductResponse 将农产品数据库模型转换为响应模型
func ToProductResponse(product *model.ProductModel) ProductResponse {
	batches := make([]BatchResponse, len(product.Batches))
	for i, batch := range product.Batches {
		batches[i] = BatchResponse{
			ID:          uint(batch.Id),
			Quantity:    batch.Quantity,
			HarvestDate: batch.HarvestDate,
			ExpiryDate:  batch.ExpiryDate,
			Status:      string(batch.Status),
		}
	}
	return ProductResponse{
		ID:                uint(product.Id),
		Name:              product.Name,
		Description:       product.Description,
		Category:          product.Category,
		Unit:              product.Unit,
		Price:             product.Price,
		Farmer:            product.FarmerAddress,
		FarmerName:        product.FarmerName,
		TotalStock:        product.TotalStock,
		ReservedStock:     product.ReservedStock,
		AvailableStock:    product.AvailableStock,
		LowStockThreshold: product.LowStockThreshold,
		Active:            product.Active,
		Batches:           batches,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
}

// ToProductResponseList 将农产品数据库模型列表转换为响应模型列表
func ToProductResponseList(products []model.ProductModel) []ProductResponse {
	result := make([]ProductResponse, len(products))
	for i, product := range products {
		result[i] = ToProductResponse(&product)
	}
	return result
}

// ToInventoryLogResponseList 将库存流水数据库模型列表转换为响应模型列表
func ToInventoryLogResponseList(logs []model.InventoryLogModel) []InventoryLogResponse {
	result := make([]InventoryLogResponse, len(logs))
	for i, entry := range logs {
		result[i] = InventoryLogResponse{
			ID:             uint(entry.Id),
			Action:         entry.Action,
			QuantityBefore: entry.QuantityBefore,
			QuantityAfter:  entry.QuantityAfter,
			ReservedBefore: entry.ReservedBefore,
			ReservedAfter:  entry.ReservedAfter,
			Reason:         entry.Reason,
			OrderID:        entry.OrderId,
			CreatedAt:      entry.CreatedAt,
		}
	}
	return result
}

// ToReviewResponseList 将评价数据库模型列表转换为响应模型列表
func ToReviewResponseList(reviews []model.ReviewModel) []ReviewResponse {
	result := make([]ReviewResponse, len(reviews))
	for i, review := range reviews {
		result[i] = ReviewResponse{
			ID:        uint(review.Id),
			TargetID:  uint(review.TargetId),
			Reviewer:  review.ReviewerAddress,
			Rating:    review.Rating,
			Content:   review.Content,
			CreatedAt: review.CreatedAt,
		}
	}
	return result
}

// ToRatingResponse 将评分聚合数据库模型转换为响应模型
func ToRatingResponse(rating *model.RatingModel) RatingResponse {
	return RatingResponse{
		Count:   rating.Count,
		Average: rating.Average,
		Distribution: map[string]int64{
			"1": rating.Star1,
			"2": rating.Star2,
			"3": rating.Star3,
			"4": rating.Star4,
			"5": rating.Star5,
		},
	}
}

func newPagination(page, pageSize int, total int64) Pagination {
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
