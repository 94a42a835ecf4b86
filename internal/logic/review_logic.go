package logic

import (
	"errors"
	"fmt"

	"github.com/greenfund/gfs/internal/model"
	"gorm.io/gorm"
)

// ReviewLogic 评价业务逻辑。评分聚合随评价增删增量维护，
// 评价与聚合更新在同一事务内
type ReviewLogic struct {
	db *gorm.DB
}

// NewReviewLogic 创建评价业务逻辑
func NewReviewLogic(db *gorm.DB) *ReviewLogic {
	return &ReviewLogic{db: db}
}

// CreateReview 创建评价并更新评分聚合
func (r *ReviewLogic) CreateReview(review *model.ReviewModel) error {
	if review.Rating < 1 || review.Rating > 5 {
		return errors.New("评分必须在1到5之间")
	}
	if review.TargetType != model.TargetTypeProduct && review.TargetType != model.TargetTypeFarmer {
		return errors.New("无效的评价对象类型")
	}

	review.Status = model.ReviewStatusActive

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return fmt.Errorf("创建评价失败: %w", err)
		}
		return r.applyRating(tx, review.TargetId, review.TargetType, review.Rating, +1)
	})
}

// RemoveReview 删除评价并回退评分聚合
func (r *ReviewLogic) RemoveReview(reviewId int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		review, err := r.getReview(tx, reviewId)
		if err != nil {
			return err
		}
		if review.Status == model.ReviewStatusDeleted {
			return nil
		}

		wasCounted := review.Status == model.ReviewStatusActive

		if err := tx.Model(review).Update("status", model.ReviewStatusDeleted).Error; err != nil {
			return fmt.Errorf("删除评价失败: %w", err)
		}
		if wasCounted {
			return r.applyRating(tx, review.TargetId, review.TargetType, review.Rating, -1)
		}
		return nil
	})
}

// ModerateReview 审核评价：隐藏或恢复，同步调整评分聚合
func (r *ReviewLogic) ModerateReview(reviewId int64, hide bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		review, err := r.getReview(tx, reviewId)
		if err != nil {
			return err
		}
		if review.Status == model.ReviewStatusDeleted {
			return errors.New("评价已删除")
		}

		newStatus := model.ReviewStatusActive
		delta := +1
		if hide {
			newStatus = model.ReviewStatusHidden
			delta = -1
		}
		if review.Status == newStatus {
			return nil
		}

		if err := tx.Model(review).Update("status", newStatus).Error; err != nil {
			return fmt.Errorf("审核评价失败: %w", err)
		}
		return r.applyRating(tx, review.TargetId, review.TargetType, review.Rating, delta)
	})
}

// GetReviews 获取评价列表，只返回展示中的评价
func (r *ReviewLogic) GetReviews(targetId int64, targetType model.TargetType, page, pageSize int) ([]model.ReviewModel, int64, error) {
	var reviews []model.ReviewModel
	var total int64

	query := r.db.Model(&model.ReviewModel{}).
		Where("target_id = ? AND target_type = ? AND status = ?",
			targetId, targetType, model.ReviewStatusActive)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取评价列表失败: %w", err)
	}

	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&reviews).Error; err != nil {
		return nil, 0, fmt.Errorf("获取评价列表失败: %w", err)
	}

	return reviews, total, nil
}

// GetRating 获取评分聚合，不存在时返回零值聚合
func (r *ReviewLogic) GetRating(targetId int64, targetType model.TargetType) (*model.RatingModel, error) {
	var rating model.RatingModel
	err := r.db.Where("target_id = ? AND target_type = ?", targetId, targetType).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.RatingModel{TargetId: targetId, TargetType: targetType}, nil
		}
		return nil, fmt.Errorf("获取评分失败: %w", err)
	}

	return &rating, nil
}

// applyRating 增量更新评分聚合。delta为+1表示计入，-1表示移除
func (r *ReviewLogic) applyRating(tx *gorm.DB, targetId int64, targetType model.TargetType, star, delta int) error {
	var rating model.RatingModel
	err := tx.Where("target_id = ? AND target_type = ?", targetId, targetType).First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rating = model.RatingModel{TargetId: targetId, TargetType: targetType}
		if err := tx.Create(&rating).Error; err != nil {
			return fmt.Errorf("创建评分聚合失败: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("获取评分聚合失败: %w", err)
	}

	sum := rating.Average * float64(rating.Count)
	rating.Count += int64(delta)
	sum += float64(star * delta)

	if rating.Count <= 0 {
		rating.Count = 0
		rating.Average = 0
	} else {
		rating.Average = sum / float64(rating.Count)
	}

	bump := func(current int64) int64 {
		current += int64(delta)
		if current < 0 {
			return 0
		}
		return current
	}
	switch star {
	case 1:
		rating.Star1 = bump(rating.Star1)
	case 2:
		rating.Star2 = bump(rating.Star2)
	case 3:
		rating.Star3 = bump(rating.Star3)
	case 4:
		rating.Star4 = bump(rating.Star4)
	case 5:
		rating.Star5 = bump(rating.Star5)
	}

	if err := tx.Save(&rating).Error; err != nil {
		return fmt.Errorf("更新评分聚合失败: %w", err)
	}
	return nil
}

// getReview 读取评价
func (r *ReviewLogic) getReview(tx *gorm.DB, reviewId int64) (*model.ReviewModel, error) {
	var review model.ReviewModel
	if err := tx.First(&review, reviewId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("评价不存在")
		}
		return nil, fmt.Errorf("获取评价失败: %w", err)
	}
	return &review, nil
}
