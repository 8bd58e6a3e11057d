package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nurpe/giga-contracts/internal/metrics"
	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/scope"
)

// ViewService builds the role-scoped aggregate views over contracts and drafts.
type ViewService struct {
	store    ViewStore
	measures MeasureReader
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewViewService(store ViewStore, measures MeasureReader, log zerolog.Logger, m *metrics.Metrics) *ViewService {
	return &ViewService{store: store, measures: measures, log: log, metrics: m}
}

func (s *ViewService) List(ctx context.Context, principal model.Principal) (*model.ContractListView, error) {
	defer s.metrics.ObserveView("list", time.Now())

	pred := scope.Resolve(principal)
	s.log.Debug().
		Str("user_id", principal.UserID.String()).
		Object("scope", pred).
		Msg("building contract list")

	var data listData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.contracts, err = s.store.ListContracts(gctx, pred)
		return err
	})
	g.Go(func() error {
		var err error
		data.drafts, err = s.store.ListDrafts(gctx, pred)
		return err
	})
	g.Go(func() error {
		var err error
		data.ltas, err = s.store.ListLTAs(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	contractIDs := make([]uuid.UUID, 0, len(data.contracts))
	for _, contract := range data.contracts {
		contractIDs = append(contractIDs, contract.ID)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.schools, err = s.store.SchoolIDsByContract(gctx, contractIDs)
		return err
	})
	g.Go(func() error {
		var err error
		data.expected, err = s.store.ExpectedMetricsByContract(gctx, contractIDs)
		return err
	})
	g.Go(func() error {
		var err error
		data.spend, err = s.store.SpendByContract(gctx, contractIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	averages, err := s.measures.SchoolAverages(ctx, uniqueSchoolIDs(data.schools))
	if err != nil {
		return nil, err
	}
	data.averages = averages

	view := buildListView(data)
	return &view, nil
}

func (s *ViewService) Count(ctx context.Context, principal model.Principal) (*model.ContractCountView, error) {
	defer s.metrics.ObserveView("count", time.Now())

	pred := scope.Resolve(principal)

	var (
		byStatus map[model.ContractStatus]int
		drafts   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.CountContractsByStatus(gctx, pred)
		return err
	})
	g.Go(func() error {
		var err error
		drafts, err = s.store.CountDrafts(gctx, pred)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := buildCountView(byStatus, drafts)
	return &view, nil
}

// Spend returns the paid amount for one contract.
func (s *ViewService) Spend(ctx context.Context, contractID uuid.UUID) (float64, error) {
	spend, err := s.store.SpendByContract(ctx, []uuid.UUID{contractID})
	if err != nil {
		return 0, err
	}
	return spend[contractID], nil
}
