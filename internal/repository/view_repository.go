package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/scope"
)

// ViewRepository serves the scoped read paths behind the list and count views.
type ViewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

func (r *ViewRepository) ListContracts(ctx context.Context, pred scope.Predicate) ([]model.ContractSummary, error) {
	var rows []model.ContractSummary
	err := r.db.WithContext(ctx).
		Table("contracts c").
		Select(`
			c.id,
			c.name,
			c.status,
			i.name AS isp_name,
			c.country_id,
			co.name AS country_name,
			co.code AS country_code,
			co.flag_url AS country_flag_url,
			c.lta_id,
			l.name AS lta_name,
			c.budget::text AS budget,
			c.budget::float8 AS budget_amount,
			c.government_behalf
		`).
		Joins("JOIN isps i ON i.id = c.isp_id").
		Joins("JOIN countries co ON co.id = c.country_id").
		Joins("LEFT JOIN ltas l ON l.id = c.lta_id").
		Scopes(pred.Contracts("c")).
		Order("c.created_at DESC, c.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ViewRepository) ListDrafts(ctx context.Context, pred scope.Predicate) ([]model.DraftSummary, error) {
	var rows []model.DraftSummary
	err := r.db.WithContext(ctx).
		Table("drafts d").
		Select(`
			d.id,
			d.name,
			i.name AS isp_name,
			d.country_id,
			co.name AS country_name,
			co.code AS country_code,
			co.flag_url AS country_flag_url,
			d.lta_id,
			l.name AS lta_name,
			COALESCE(jsonb_array_length(d.school_ids), 0) AS school_count
		`).
		Joins("LEFT JOIN isps i ON i.id = d.isp_id").
		Joins("LEFT JOIN countries co ON co.id = d.country_id").
		Joins("LEFT JOIN ltas l ON l.id = d.lta_id").
		Scopes(pred.Drafts("d")).
		Order("d.created_at DESC, d.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ViewRepository) ListLTAs(ctx context.Context, pred scope.Predicate) ([]model.LTA, error) {
	var rows []model.LTA
	err := r.db.WithContext(ctx).
		Table("ltas l").
		Select("l.id, l.name, l.country_id, l.government_behalf").
		Scopes(pred.LTAs("l")).
		Order("l.name ASC, l.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ViewRepository) CountContractsByStatus(ctx context.Context, pred scope.Predicate) (map[model.ContractStatus]int, error) {
	var rows []struct {
		Status model.ContractStatus
		Count  int
	}
	err := r.db.WithContext(ctx).
		Table("contracts c").
		Select("c.status, COUNT(*) AS count").
		Scopes(pred.Contracts("c")).
		Group("c.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[model.ContractStatus]int, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

func (r *ViewRepository) CountDrafts(ctx context.Context, pred scope.Predicate) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("drafts d").
		Scopes(pred.Drafts("d")).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ViewRepository) SchoolIDsByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(contractIDs))
	if len(contractIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ContractID uuid.UUID
		SchoolID   uuid.UUID
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT contract_id, school_id
		FROM contract_schools
		WHERE contract_id IN ?
	`, contractIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ContractID] = append(result[row.ContractID], row.SchoolID)
	}
	return result, nil
}

func (r *ViewRepository) ExpectedMetricsByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID][]model.ExpectedMetric, error) {
	result := make(map[uuid.UUID][]model.ExpectedMetric, len(contractIDs))
	if len(contractIDs) == 0 {
		return result, nil
	}
	var rows []model.ExpectedMetric
	if err := r.db.WithContext(ctx).Raw(`
		SELECT em.id, em.contract_id, em.metric_id, m.name AS metric_name, m.unit AS metric_unit, em.value
		FROM expected_metrics em
		JOIN metrics m ON m.id = em.metric_id
		WHERE em.contract_id IN ?
		ORDER BY m.name ASC
	`, contractIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ContractID] = append(result[row.ContractID], row)
	}
	return result, nil
}

func (r *ViewRepository) SpendByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	result := make(map[uuid.UUID]float64, len(contractIDs))
	if len(contractIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ContractID uuid.UUID
		Spent      float64
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT contract_id, COALESCE(SUM(amount), 0)::float8 AS spent
		FROM payments
		WHERE contract_id IN ?
		GROUP BY contract_id
	`, contractIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ContractID] = row.Spent
	}
	return result, nil
}
