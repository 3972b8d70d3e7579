package review

import (
	"math"

	"github.com/Kyz7/juna/internal/apperror"
	"github.com/Kyz7/juna/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Stats struct {
	AverageRating      float64       `json:"averageRating"`
	TotalReviews       int64         `json:"totalReviews"`
	RatingDistribution map[int]int64 `json:"ratingDistribution"`
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// computeStats rescans the approved reviews of a subscription.
func computeStats(db *gorm.DB, subscriptionID uuid.UUID) (*Stats, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := db.Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("subscription_id = ? AND status = ?", subscriptionID, models.ReviewApproved).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Review")
	}

	stats := &Stats{RatingDistribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var sum int64
	for _, row := range rows {
		stats.RatingDistribution[row.Rating] = row.Count
		stats.TotalReviews += row.Count
		sum += int64(row.Rating) * row.Count
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = roundOne(float64(sum) / float64(stats.TotalReviews))
	}
	return stats, nil
}

// recompute refreshes the denormalized rating of the subscription and of
// its provider. The provider figure is the review-count weighted mean over
// all its subscriptions, taken from the raw ratings so per-subscription
// rounding does not accumulate. Callers hold the subscription row lock; the
// provider row is locked here, after it, so approvals on sibling
// subscriptions rescan the provider one at a time.
func recompute(tx *gorm.DB, sub *models.Subscription) error {
	var provider models.Provider
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&provider, "id = ?", sub.ProviderID).Error
	if err != nil {
		return apperror.FromDB(err, "Provider")
	}

	stats, err := computeStats(tx, sub.ID)
	if err != nil {
		return err
	}

	err = tx.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"rating":        stats.AverageRating,
			"total_reviews": stats.TotalReviews,
		}).Error
	if err != nil {
		return apperror.FromDB(err, "Subscription")
	}

	var agg struct {
		Count int64
		Total int64
	}
	err = tx.Table("reviews").
		Select("COUNT(*) AS count, COALESCE(SUM(reviews.rating), 0) AS total").
		Joins("JOIN subscriptions ON subscriptions.id = reviews.subscription_id").
		Where("subscriptions.provider_id = ? AND reviews.status = ?", sub.ProviderID, models.ReviewApproved).
		Scan(&agg).Error
	if err != nil {
		return apperror.FromDB(err, "Provider")
	}

	var rating float64
	if agg.Count > 0 {
		rating = roundOne(float64(agg.Total) / float64(agg.Count))
	}
	err = tx.Model(&models.Provider{}).
		Where("id = ?", sub.ProviderID).
		Updates(map[string]interface{}{
			"rating":        rating,
			"total_reviews": agg.Count,
		}).Error
	if err != nil {
		return apperror.FromDB(err, "Provider")
	}
	return nil
}
