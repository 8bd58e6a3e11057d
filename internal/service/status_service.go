package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/giga-contracts/internal/metrics"
	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/repository"
)

// StatusService moves contracts forward through their lifecycle one step at a time.
type StatusService struct {
	store   ContractStore
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewStatusService(store ContractStore, log zerolog.Logger, m *metrics.Metrics) *StatusService {
	return &StatusService{store: store, log: log, metrics: m}
}

// Transition advances the contract to status, which must be exactly the next
// status. The current status is read under a row lock so concurrent callers
// cannot both advance from the same status.
//
// A nil actor is a no-op returning (nil, nil); system callers without an
// authenticated user rely on this.
func (s *StatusService) Transition(ctx context.Context, contractID uuid.UUID, status model.ContractStatus, actor *uuid.UUID) (*model.Contract, error) {
	if actor == nil {
		return nil, nil
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidStatus, int(status))
	}

	var (
		updated *model.Contract
		from    model.ContractStatus
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.ContractWriter) error {
		current, err := tx.LockContractStatus(ctx, contractID)
		if err != nil {
			if isRecordNotFound(err) {
				return ErrContractNotFound
			}
			return fmt.Errorf("lock contract: %w", err)
		}
		if !current.CanAdvanceTo(status) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStatus, current, status)
		}
		from = current

		if err := tx.InsertStatusTransition(ctx, &model.StatusTransition{
			ContractID:    contractID,
			Who:           *actor,
			InitialStatus: current,
			FinalStatus:   status,
		}); err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
		if err := tx.UpdateContractStatus(ctx, contractID, status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		saved, err := tx.GetContract(ctx, contractID)
		if err != nil {
			return fmt.Errorf("reload contract: %w", err)
		}
		updated = saved
		return nil
	})
	if err != nil {
		return nil, normalizeTxError(s.log, s.metrics, "transition_status", contractID, err)
	}

	s.metrics.IncStatusTransition(status.String())
	s.log.Info().
		Str("contract_id", contractID.String()).
		Str("user_id", actor.String()).
		Stringer("from", from).
		Stringer("to", status).
		Msg("contract status changed")
	return updated, nil
}
