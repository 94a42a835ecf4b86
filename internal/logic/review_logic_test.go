package logic

import (
	"fmt"
	"testing"

	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestReview(t *testing.T, l *ReviewLogic, targetId int64, rating int) *model.ReviewModel {
	t.Helper()
	review := &model.ReviewModel{
		TargetId:        targetId,
		TargetType:      model.TargetTypeProduct,
		ReviewerAddress: fmt.Sprintf("0x%040d", rating),
		Rating:          rating,
		Content:         "很新鲜",
	}
	require.NoError(t, l.CreateReview(review))
	return review
}

// recomputeAverage 从评价表全量重算，校验增量聚合没有漂移
func recomputeAverage(t *testing.T, db *gorm.DB, targetId int64) (float64, int64) {
	t.Helper()
	var rows []model.ReviewModel
	require.NoError(t, db.Where("target_id = ? AND target_type = ? AND status = ?",
		targetId, model.TargetTypeProduct, model.ReviewStatusActive).Find(&rows).Error)
	if len(rows) == 0 {
		return 0, 0
	}
	sum := 0
	for _, row := range rows {
		sum += row.Rating
	}
	return float64(sum) / float64(len(rows)), int64(len(rows))
}

func TestCreateReviewUpdatesAggregate(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	createTestReview(t, l, 1, 5)
	createTestReview(t, l, 1, 3)

	rating, err := l.GetRating(1, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rating.Count)
	assert.InDelta(t, 4.0, rating.Average, 1e-9)
	assert.Equal(t, int64(1), rating.Star5)
	assert.Equal(t, int64(1), rating.Star3)
}

func TestCreateReviewRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	err := l.CreateReview(&model.ReviewModel{TargetId: 1, TargetType: model.TargetTypeProduct, Rating: 6})
	assert.Error(t, err)

	err = l.CreateReview(&model.ReviewModel{TargetId: 1, TargetType: "shop", Rating: 4})
	assert.Error(t, err)
}

func TestRemoveReviewRevertsAggregate(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	review := createTestReview(t, l, 1, 5)
	createTestReview(t, l, 1, 2)

	require.NoError(t, l.RemoveReview(review.Id))

	rating, err := l.GetRating(1, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rating.Count)
	assert.InDelta(t, 2.0, rating.Average, 1e-9)
	assert.Zero(t, rating.Star5)

	// 重复删除是幂等的
	require.NoError(t, l.RemoveReview(review.Id))
	rating, err = l.GetRating(1, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rating.Count)
}

func TestModerateReviewHideAndRestore(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	review := createTestReview(t, l, 7, 4)

	require.NoError(t, l.ModerateReview(review.Id, true))
	rating, err := l.GetRating(7, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Zero(t, rating.Count)
	assert.Zero(t, rating.Average)

	// 隐藏中的评价不出现在列表里
	reviews, total, err := l.GetReviews(7, model.TargetTypeProduct, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reviews)

	require.NoError(t, l.ModerateReview(review.Id, false))
	rating, err = l.GetRating(7, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rating.Count)
	assert.InDelta(t, 4.0, rating.Average, 1e-9)

	// 重复隐藏不重复扣减
	require.NoError(t, l.ModerateReview(review.Id, true))
	require.NoError(t, l.ModerateReview(review.Id, true))
	rating, err = l.GetRating(7, model.TargetTypeProduct)
	require.NoError(t, err)
	assert.Zero(t, rating.Count)
}

func TestIncrementalAggregateMatchesRecomputation(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	var reviews []*model.ReviewModel
	for _, star := range []int{5, 4, 4, 3, 1, 5, 2} {
		reviews = append(reviews, createTestReview(t, l, 9, star))
	}
	require.NoError(t, l.RemoveReview(reviews[1].Id))
	require.NoError(t, l.ModerateReview(reviews[4].Id, true))

	rating, err := l.GetRating(9, model.TargetTypeProduct)
	require.NoError(t, err)

	wantAvg, wantCount := recomputeAverage(t, db, 9)
	assert.Equal(t, wantCount, rating.Count)
	assert.InDelta(t, wantAvg, rating.Average, 1e-9)
}

func TestGetRatingReturnsZeroValueWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	l := NewReviewLogic(db)

	rating, err := l.GetRating(42, model.TargetTypeFarmer)
	require.NoError(t, err)
	assert.Zero(t, rating.Count)
	assert.Zero(t, rating.Average)
}
