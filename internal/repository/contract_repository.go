package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/giga-contracts/internal/model"
)

// ContractWriter is the set of writes the contract workflows perform inside
// one transaction. Lookups return gorm.ErrRecordNotFound for missing rows.
type ContractWriter interface {
	InsertContract(ctx context.Context, contract *model.Contract) error
	AttachAttachments(ctx context.Context, contractID uuid.UUID, attachmentIDs []uuid.UUID) error
	AttachSchools(ctx context.Context, contractID uuid.UUID, schoolIDs []uuid.UUID) error
	InsertExpectedMetrics(ctx context.Context, contractID uuid.UUID, metrics []model.ExpectedMetric) error
	FindDraftForUpdate(ctx context.Context, id uuid.UUID) (*model.Draft, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	InsertStatusTransition(ctx context.Context, transition *model.StatusTransition) error
	LockContractStatus(ctx context.Context, id uuid.UUID) (model.ContractStatus, error)
	UpdateContractStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) error
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
}

type ContractRepository struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
	timeout   time.Duration
}

func NewContractRepository(db *gorm.DB, isolation sql.IsolationLevel, timeout time.Duration) *ContractRepository {
	return &ContractRepository{db: db, isolation: isolation, timeout: timeout}
}

// RunInTx runs fn inside a single database transaction. The transaction is
// committed only when fn returns nil and rolled back on any error or panic.
// fn must use the ctx it is given; it carries the transaction timeout.
func (r *ContractRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ContractWriter) error) error {
	if r.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &contractTx{db: tx})
	}, &sql.TxOptions{Isolation: r.isolation})
}

func (r *ContractRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return (&contractTx{db: r.db}).GetContract(ctx, id)
}

type contractTx struct {
	db *gorm.DB
}

func (t *contractTx) InsertContract(ctx context.Context, contract *model.Contract) error {
	var saved struct {
		ID        uuid.UUID
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	err := t.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (
			name,
			country_id,
			currency_id,
			frequency_id,
			isp_id,
			lta_id,
			budget,
			government_behalf,
			start_date,
			end_date,
			status,
			created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?::numeric, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`,
		contract.Name,
		contract.CountryID,
		contract.CurrencyID,
		contract.FrequencyID,
		contract.ISPID,
		contract.LTAID,
		contract.Budget,
		contract.GovernmentBehalf,
		contract.StartDate,
		contract.EndDate,
		contract.Status,
		contract.CreatedBy,
	).Scan(&saved).Error
	if err != nil {
		return err
	}
	contract.ID = saved.ID
	contract.CreatedAt = saved.CreatedAt
	contract.UpdatedAt = saved.UpdatedAt
	return nil
}

func (t *contractTx) AttachAttachments(ctx context.Context, contractID uuid.UUID, attachmentIDs []uuid.UUID) error {
	for _, attachmentID := range attachmentIDs {
		if err := t.db.WithContext(ctx).Exec(`
			INSERT INTO contract_attachments (contract_id, attachment_id)
			VALUES (?, ?)
		`, contractID, attachmentID).Error; err != nil {
			return err
		}
	}
	return nil
}

func (t *contractTx) AttachSchools(ctx context.Context, contractID uuid.UUID, schoolIDs []uuid.UUID) error {
	for _, schoolID := range schoolIDs {
		if err := t.db.WithContext(ctx).Exec(`
			INSERT INTO contract_schools (contract_id, school_id)
			VALUES (?, ?)
		`, contractID, schoolID).Error; err != nil {
			return err
		}
	}
	return nil
}

func (t *contractTx) InsertExpectedMetrics(ctx context.Context, contractID uuid.UUID, metrics []model.ExpectedMetric) error {
	for _, metric := range metrics {
		if err := t.db.WithContext(ctx).Exec(`
			INSERT INTO expected_metrics (contract_id, metric_id, value)
			VALUES (?, ?, ?)
		`, contractID, metric.MetricID, metric.Value).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindDraftForUpdate locks the draft row so concurrent promotions of the same
// draft serialize and only the first one finds it.
func (t *contractTx) FindDraftForUpdate(ctx context.Context, id uuid.UUID) (*model.Draft, error) {
	var draft model.Draft
	err := t.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			country_id,
			isp_id,
			lta_id,
			government_behalf,
			budget::text AS budget,
			school_ids,
			created_by,
			created_at
		FROM drafts
		WHERE id = ?
		FOR UPDATE
	`, id).Scan(&draft).Error
	if err != nil {
		return nil, err
	}
	if draft.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &draft, nil
}

func (t *contractTx) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	res := t.db.WithContext(ctx).Exec(`DELETE FROM drafts WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *contractTx) InsertStatusTransition(ctx context.Context, transition *model.StatusTransition) error {
	var saved struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}
	err := t.db.WithContext(ctx).Raw(`
		INSERT INTO status_transitions (
			contract_id,
			who,
			initial_status,
			final_status,
			data
		) VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at
	`,
		transition.ContractID,
		transition.Who,
		transition.InitialStatus,
		transition.FinalStatus,
		transition.Data,
	).Scan(&saved).Error
	if err != nil {
		return err
	}
	transition.ID = saved.ID
	transition.CreatedAt = saved.CreatedAt
	return nil
}

// LockContractStatus reads the current status with a row lock held until the
// surrounding transaction ends.
func (t *contractTx) LockContractStatus(ctx context.Context, id uuid.UUID) (model.ContractStatus, error) {
	var row struct {
		Status model.ContractStatus
	}
	err := t.db.WithContext(ctx).
		Table("contracts").
		Select("status").
		Where("id = ?", id).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Status, nil
}

func (t *contractTx) UpdateContractStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) error {
	res := t.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET status = ?, updated_at = NOW()
		WHERE id = ?
	`, status, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *contractTx) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := t.db.WithContext(ctx).Raw(`
		SELECT
			c.id,
			c.name,
			c.country_id,
			c.currency_id,
			c.frequency_id,
			c.isp_id,
			c.lta_id,
			c.budget::text AS budget,
			c.government_behalf,
			c.start_date,
			c.end_date,
			c.status,
			c.created_by,
			c.created_at,
			c.updated_at,
			co.name AS country_name,
			cu.code AS currency_code,
			f.name AS frequency_name,
			i.name AS isp_name,
			l.name AS lta_name
		FROM contracts c
		JOIN countries co ON co.id = c.country_id
		JOIN currencies cu ON cu.id = c.currency_id
		JOIN frequencies f ON f.id = c.frequency_id
		JOIN isps i ON i.id = c.isp_id
		LEFT JOIN ltas l ON l.id = c.lta_id
		WHERE c.id = ?
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	if err := t.db.WithContext(ctx).Raw(`
		SELECT s.id, s.name, s.external_id, s.country_id
		FROM contract_schools cs
		JOIN schools s ON s.id = cs.school_id
		WHERE cs.contract_id = ?
		ORDER BY s.name ASC
	`, id).Scan(&contract.Schools).Error; err != nil {
		return nil, err
	}

	if err := t.db.WithContext(ctx).Raw(`
		SELECT em.id, em.contract_id, em.metric_id, m.name AS metric_name, m.unit AS metric_unit, em.value
		FROM expected_metrics em
		JOIN metrics m ON m.id = em.metric_id
		WHERE em.contract_id = ?
		ORDER BY m.name ASC
	`, id).Scan(&contract.ExpectedMetrics).Error; err != nil {
		return nil, err
	}

	if err := t.db.WithContext(ctx).Raw(`
		SELECT a.id, a.name, a.url
		FROM contract_attachments ca
		JOIN attachments a ON a.id = ca.attachment_id
		WHERE ca.contract_id = ?
		ORDER BY a.name ASC
	`, id).Scan(&contract.Attachments).Error; err != nil {
		return nil, err
	}

	if err := t.db.WithContext(ctx).Raw(`
		SELECT id, contract_id, who, initial_status, final_status, data, created_at
		FROM status_transitions
		WHERE contract_id = ?
		ORDER BY created_at ASC, final_status ASC
	`, id).Scan(&contract.Transitions).Error; err != nil {
		return nil, err
	}

	return &contract, nil
}
