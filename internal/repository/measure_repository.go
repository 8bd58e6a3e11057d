package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MeasureRepository reads externally sourced connectivity measures.
type MeasureRepository struct {
	db *gorm.DB
}

func NewMeasureRepository(db *gorm.DB) *MeasureRepository {
	return &MeasureRepository{db: db}
}

// SchoolAverages returns the average value per metric for each school.
// Schools without measures are absent from the result.
func (r *MeasureRepository) SchoolAverages(ctx context.Context, schoolIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID]float64, error) {
	result := make(map[uuid.UUID]map[uuid.UUID]float64, len(schoolIDs))
	if len(schoolIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		SchoolID uuid.UUID
		MetricID uuid.UUID
		Average  float64
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT school_id, metric_id, AVG(value) AS average
		FROM measures
		WHERE school_id IN ?
		GROUP BY school_id, metric_id
	`, schoolIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		averages, ok := result[row.SchoolID]
		if !ok {
			averages = make(map[uuid.UUID]float64)
			result[row.SchoolID] = averages
		}
		averages[row.MetricID] = row.Average
	}
	return result, nil
}
