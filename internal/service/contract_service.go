package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/nurpe/giga-contracts/internal/metrics"
	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/repository"
	"github.com/nurpe/giga-contracts/internal/scope"
)

type ContractService struct {
	store   ContractStore
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type ExpectedMetricInput struct {
	MetricID uuid.UUID
	Value    float64
}

type CreateContractInput struct {
	Name             string
	CountryID        uuid.UUID
	CurrencyID       uuid.UUID
	FrequencyID      uuid.UUID
	ISPID            uuid.UUID
	LTAID            *uuid.UUID
	Budget           string
	GovernmentBehalf bool
	StartDate        time.Time
	EndDate          time.Time
	// Status is ignored: contracts are always created as Sent.
	Status          *model.ContractStatus
	SchoolIDs       []uuid.UUID
	ExpectedMetrics []ExpectedMetricInput
	AttachmentIDs   []uuid.UUID
	DraftID         *uuid.UUID
}

func NewContractService(store ContractStore, log zerolog.Logger, m *metrics.Metrics) *ContractService {
	return &ContractService{store: store, log: log, metrics: m}
}

// Create inserts the contract and all of its relations in one transaction and
// consumes the source draft when DraftID is set. ErrDraftNotFound is returned
// as is; every other failure rolls back and surfaces as ErrDependencyFailure.
func (s *ContractService) Create(ctx context.Context, input CreateContractInput, actor uuid.UUID) (*model.Contract, error) {
	if err := validateCreate(input, actor); err != nil {
		return nil, err
	}

	contract := &model.Contract{
		Name:             strings.TrimSpace(input.Name),
		CountryID:        input.CountryID,
		CurrencyID:       input.CurrencyID,
		FrequencyID:      input.FrequencyID,
		ISPID:            input.ISPID,
		LTAID:            input.LTAID,
		Budget:           strings.TrimSpace(input.Budget),
		GovernmentBehalf: input.GovernmentBehalf,
		StartDate:        dateOnly(input.StartDate),
		EndDate:          dateOnly(input.EndDate),
		Status:           model.ContractStatusSent,
		CreatedBy:        actor,
	}

	expected := make([]model.ExpectedMetric, 0, len(input.ExpectedMetrics))
	for _, metric := range input.ExpectedMetrics {
		expected = append(expected, model.ExpectedMetric{MetricID: metric.MetricID, Value: metric.Value})
	}

	var created *model.Contract
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.ContractWriter) error {
		if err := tx.InsertContract(ctx, contract); err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}
		if len(input.AttachmentIDs) > 0 {
			if err := tx.AttachAttachments(ctx, contract.ID, input.AttachmentIDs); err != nil {
				return fmt.Errorf("attach attachments: %w", err)
			}
		}
		if err := tx.AttachSchools(ctx, contract.ID, input.SchoolIDs); err != nil {
			return fmt.Errorf("attach schools: %w", err)
		}
		for i := range expected {
			expected[i].ContractID = contract.ID
		}
		if err := tx.InsertExpectedMetrics(ctx, contract.ID, expected); err != nil {
			return fmt.Errorf("insert expected metrics: %w", err)
		}
		if input.DraftID != nil {
			if err := promoteDraft(ctx, tx, contract.ID, *input.DraftID, actor); err != nil {
				return err
			}
		}

		saved, err := tx.GetContract(ctx, contract.ID)
		if err != nil {
			return fmt.Errorf("reload contract: %w", err)
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, normalizeTxError(s.log, s.metrics, "create_contract", contract.ID, err)
	}

	s.metrics.IncContractsCreated()
	if input.DraftID != nil {
		s.metrics.IncDraftsPromoted()
	}
	s.log.Info().
		Str("contract_id", created.ID.String()).
		Str("user_id", actor.String()).
		Int("schools", len(created.Schools)).
		Msg("contract created")
	return created, nil
}

// promoteDraft records the Draft -> Sent transition for the new contract and
// deletes the draft. The draft row is locked so it is consumed exactly once.
func promoteDraft(ctx context.Context, tx repository.ContractWriter, contractID, draftID, actor uuid.UUID) error {
	draft, err := tx.FindDraftForUpdate(ctx, draftID)
	if isRecordNotFound(err) {
		return ErrDraftNotFound
	}
	if err != nil {
		return fmt.Errorf("find draft: %w", err)
	}

	data, err := json.Marshal(model.DraftPromotion{
		DraftID:       draft.ID,
		DraftCreation: draft.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode draft promotion: %w", err)
	}

	if err := tx.InsertStatusTransition(ctx, &model.StatusTransition{
		ContractID:    contractID,
		Who:           actor,
		InitialStatus: model.ContractStatusDraft,
		FinalStatus:   model.ContractStatusSent,
		Data:          datatypes.JSON(data),
	}); err != nil {
		return fmt.Errorf("insert draft transition: %w", err)
	}

	if err := tx.DeleteDraft(ctx, draft.ID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Get returns the contract if it exists and is visible to the principal.
// Contracts outside the principal's scope are reported as not found.
func (s *ContractService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	pred := scope.Resolve(principal)
	if !pred.Allows(scope.Row{
		CountryID:        contract.CountryID,
		GovernmentBehalf: contract.GovernmentBehalf,
		ISPNames:         []string{contract.ISPName},
	}) {
		return nil, ErrContractNotFound
	}
	return contract, nil
}

// Budgets are stored as NUMERIC(18,2).
const (
	budgetIntegerDigits  = 16
	budgetFractionDigits = 2
)

func validateCreate(input CreateContractInput, actor uuid.UUID) error {
	if actor == uuid.Nil {
		return fmt.Errorf("%w: acting user is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateBudget(strings.TrimSpace(input.Budget)); err != nil {
		return err
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if input.EndDate.Before(input.StartDate) {
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalidInput)
	}
	return nil
}

// validateBudget accepts plain non-negative decimals that fit the budget column.
// Exponent forms are rejected.
func validateBudget(raw string) error {
	whole, fraction, _ := strings.Cut(raw, ".")
	if (whole == "" && fraction == "") || !isDigits(whole) || !isDigits(fraction) {
		return fmt.Errorf("%w: budget must be a non-negative decimal", ErrInvalidInput)
	}
	if len(strings.TrimLeft(whole, "0")) > budgetIntegerDigits {
		return fmt.Errorf("%w: budget must have at most %d integer digits", ErrInvalidInput, budgetIntegerDigits)
	}
	if len(fraction) > budgetFractionDigits {
		return fmt.Errorf("%w: budget must have at most %d decimal places", ErrInvalidInput, budgetFractionDigits)
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
