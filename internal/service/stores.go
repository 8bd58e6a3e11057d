package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/repository"
	"github.com/nurpe/giga-contracts/internal/scope"
)

// ContractStore is the transactional storage facility for contract writes.
type ContractStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.ContractWriter) error) error
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
}

// ViewStore serves the scoped reads behind the aggregate views.
type ViewStore interface {
	ListContracts(ctx context.Context, pred scope.Predicate) ([]model.ContractSummary, error)
	ListDrafts(ctx context.Context, pred scope.Predicate) ([]model.DraftSummary, error)
	ListLTAs(ctx context.Context, pred scope.Predicate) ([]model.LTA, error)
	CountContractsByStatus(ctx context.Context, pred scope.Predicate) (map[model.ContractStatus]int, error)
	CountDrafts(ctx context.Context, pred scope.Predicate) (int, error)
	SchoolIDsByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	ExpectedMetricsByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID][]model.ExpectedMetric, error)
	SpendByContract(ctx context.Context, contractIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}

// MeasureReader supplies averaged measures per school and metric.
type MeasureReader interface {
	SchoolAverages(ctx context.Context, schoolIDs []uuid.UUID) (map[uuid.UUID]map[uuid.UUID]float64, error)
}
