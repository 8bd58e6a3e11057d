package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/repository"
)

var errForeignKey = errors.New("ERROR: insert or update violates foreign key constraint (SQLSTATE 23503)")

// memState is the mutable part of the fake database. RunInTx works on a clone
// and swaps it in on success, which gives all-or-nothing commits.
type memState struct {
	contracts   map[uuid.UUID]model.Contract
	schools     map[uuid.UUID][]uuid.UUID
	attachments map[uuid.UUID][]uuid.UUID
	expected    map[uuid.UUID][]model.ExpectedMetric
	drafts      map[uuid.UUID]model.Draft
	transitions []model.StatusTransition
}

func newMemState() *memState {
	return &memState{
		contracts:   map[uuid.UUID]model.Contract{},
		schools:     map[uuid.UUID][]uuid.UUID{},
		attachments: map[uuid.UUID][]uuid.UUID{},
		expected:    map[uuid.UUID][]model.ExpectedMetric{},
		drafts:      map[uuid.UUID]model.Draft{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.schools {
		c.schools[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.attachments {
		c.attachments[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.expected {
		c.expected[k] = append([]model.ExpectedMetric(nil), v...)
	}
	for k, v := range s.drafts {
		c.drafts[k] = v
	}
	c.transitions = append([]model.StatusTransition(nil), s.transitions...)
	return c
}

type memStore struct {
	mu    sync.Mutex
	state *memState

	refSchools     map[uuid.UUID]model.School
	refMetrics     map[uuid.UUID]model.Metric
	refAttachments map[uuid.UUID]model.Attachment

	// failOn names a ContractWriter method that returns an injected error.
	failOn string
}

func newMemStore() *memStore {
	return &memStore{
		state:          newMemState(),
		refSchools:     map[uuid.UUID]model.School{},
		refMetrics:     map[uuid.UUID]model.Metric{},
		refAttachments: map[uuid.UUID]model.Attachment{},
	}
}

func (m *memStore) addSchool(name string) uuid.UUID {
	id := uuid.New()
	m.refSchools[id] = model.School{ID: id, Name: name}
	return id
}

func (m *memStore) addMetric(name string) uuid.UUID {
	id := uuid.New()
	m.refMetrics[id] = model.Metric{ID: id, Name: name}
	return id
}

func (m *memStore) addAttachment(name string) uuid.UUID {
	id := uuid.New()
	m.refAttachments[id] = model.Attachment{ID: id, Name: name}
	return id
}

func (m *memStore) addDraft(name string, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	m.state.drafts[id] = model.Draft{ID: id, Name: name, CreatedAt: createdAt}
	return id
}

func (m *memStore) addContract(status model.ContractStatus) uuid.UUID {
	id := uuid.New()
	m.state.contracts[id] = model.Contract{ID: id, Name: "seeded", Status: status, ISPName: "FastNet"}
	return id
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.ContractWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{store: m, state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{store: m, state: m.state}).GetContract(ctx, id)
}

type memTx struct {
	store *memStore
	state *memState
}

func (t *memTx) injected(method string) error {
	if t.store.failOn == method {
		return fmt.Errorf("injected failure in %s", method)
	}
	return nil
}

func (t *memTx) InsertContract(_ context.Context, contract *model.Contract) error {
	if err := t.injected("InsertContract"); err != nil {
		return err
	}
	contract.ID = uuid.New()
	contract.CreatedAt = time.Now()
	contract.UpdatedAt = contract.CreatedAt
	t.state.contracts[contract.ID] = *contract
	return nil
}

func (t *memTx) AttachAttachments(_ context.Context, contractID uuid.UUID, ids []uuid.UUID) error {
	if err := t.injected("AttachAttachments"); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := t.store.refAttachments[id]; !ok {
			return errForeignKey
		}
		t.state.attachments[contractID] = append(t.state.attachments[contractID], id)
	}
	return nil
}

func (t *memTx) AttachSchools(_ context.Context, contractID uuid.UUID, ids []uuid.UUID) error {
	if err := t.injected("AttachSchools"); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := t.store.refSchools[id]; !ok {
			return errForeignKey
		}
		t.state.schools[contractID] = append(t.state.schools[contractID], id)
	}
	return nil
}

func (t *memTx) InsertExpectedMetrics(_ context.Context, contractID uuid.UUID, metrics []model.ExpectedMetric) error {
	if err := t.injected("InsertExpectedMetrics"); err != nil {
		return err
	}
	for _, metric := range metrics {
		if _, ok := t.store.refMetrics[metric.MetricID]; !ok {
			return errForeignKey
		}
		for _, existing := range t.state.expected[contractID] {
			if existing.MetricID == metric.MetricID {
				return errors.New("duplicate key value violates unique constraint")
			}
		}
		metric.ID = uuid.New()
		metric.ContractID = contractID
		t.state.expected[contractID] = append(t.state.expected[contractID], metric)
	}
	return nil
}

func (t *memTx) FindDraftForUpdate(_ context.Context, id uuid.UUID) (*model.Draft, error) {
	if err := t.injected("FindDraftForUpdate"); err != nil {
		return nil, err
	}
	draft, ok := t.state.drafts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &draft, nil
}

func (t *memTx) DeleteDraft(_ context.Context, id uuid.UUID) error {
	if err := t.injected("DeleteDraft"); err != nil {
		return err
	}
	if _, ok := t.state.drafts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(t.state.drafts, id)
	return nil
}

func (t *memTx) InsertStatusTransition(_ context.Context, transition *model.StatusTransition) error {
	if err := t.injected("InsertStatusTransition"); err != nil {
		return err
	}
	if _, ok := t.state.contracts[transition.ContractID]; !ok {
		return errForeignKey
	}
	transition.ID = uuid.New()
	transition.CreatedAt = time.Now()
	t.state.transitions = append(t.state.transitions, *transition)
	return nil
}

func (t *memTx) LockContractStatus(_ context.Context, id uuid.UUID) (model.ContractStatus, error) {
	if err := t.injected("LockContractStatus"); err != nil {
		return 0, err
	}
	contract, ok := t.state.contracts[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return contract.Status, nil
}

func (t *memTx) UpdateContractStatus(_ context.Context, id uuid.UUID, status model.ContractStatus) error {
	if err := t.injected("UpdateContractStatus"); err != nil {
		return err
	}
	contract, ok := t.state.contracts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	contract.Status = status
	t.state.contracts[id] = contract
	return nil
}

func (t *memTx) GetContract(_ context.Context, id uuid.UUID) (*model.Contract, error) {
	if err := t.injected("GetContract"); err != nil {
		return nil, err
	}
	contract, ok := t.state.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	contract.Schools = nil
	for _, schoolID := range t.state.schools[id] {
		contract.Schools = append(contract.Schools, t.store.refSchools[schoolID])
	}
	contract.ExpectedMetrics = append([]model.ExpectedMetric(nil), t.state.expected[id]...)
	for i := range contract.ExpectedMetrics {
		contract.ExpectedMetrics[i].MetricName = t.store.refMetrics[contract.ExpectedMetrics[i].MetricID].Name
	}
	contract.Attachments = nil
	for _, attachmentID := range t.state.attachments[id] {
		contract.Attachments = append(contract.Attachments, t.store.refAttachments[attachmentID])
	}
	contract.Transitions = nil
	for _, transition := range t.state.transitions {
		if transition.ContractID == id {
			contract.Transitions = append(contract.Transitions, transition)
		}
	}
	sort.SliceStable(contract.Transitions, func(i, j int) bool {
		return contract.Transitions[i].FinalStatus < contract.Transitions[j].FinalStatus
	})
	return &contract, nil
}

func (s *memState) transitionsFor(contractID uuid.UUID) []model.StatusTransition {
	var result []model.StatusTransition
	for _, transition := range s.transitions {
		if transition.ContractID == contractID {
			result = append(result, transition)
		}
	}
	return result
}
