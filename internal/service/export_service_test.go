package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/giga-contracts/internal/model"
)

type captureExcel struct{ view model.ContractListView }

func (c *captureExcel) Generate(view model.ContractListView) ([]byte, error) {
	c.view = view
	return []byte("xlsx"), nil
}

type capturePDF struct{ sheet model.ContractSheet }

func (c *capturePDF) Generate(sheet model.ContractSheet) ([]byte, error) {
	c.sheet = sheet
	return []byte("pdf"), nil
}

func newExportFixture(t *testing.T) (*ExportService, *memStore, *fakeViewStore, *captureExcel, *capturePDF) {
	t.Helper()
	store := newMemStore()
	views := &fakeViewStore{}
	excel := &captureExcel{}
	pdf := &capturePDF{}
	svc := NewExportService(
		NewViewService(views, &fakeMeasures{}, zerolog.Nop(), nil),
		NewContractService(store, zerolog.Nop(), nil),
		excel,
		pdf,
	)
	svc.now = func() time.Time { return time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC) }
	return svc, store, views, excel, pdf
}

func TestExportList(t *testing.T) {
	svc, _, views, excel, _ := newExportFixture(t)
	views.contracts = []model.ContractSummary{{ID: uuid.New(), Name: "Contract 1"}}

	result, err := svc.ExportList(context.Background(), model.Principal{Roles: []model.Role{model.RoleAdmin}})
	require.NoError(t, err)

	assert.Equal(t, "contracts-20250307.xlsx", result.FileName)
	assert.Equal(t, []byte("xlsx"), result.Content)
	assert.Len(t, excel.view.Items, 1)
}

func TestExportSheet(t *testing.T) {
	svc, store, views, _, pdf := newExportFixture(t)
	id := store.addContract(model.ContractStatusOngoing)
	contract := store.state.contracts[id]
	contract.Name = "Schools / Nairobi 2025"
	contract.Budget = "400.00"
	store.state.contracts[id] = contract
	views.spend = map[uuid.UUID]float64{id: 100}

	result, err := svc.ExportSheet(context.Background(), model.Principal{Roles: []model.Role{model.RoleAdmin}}, id)
	require.NoError(t, err)

	assert.Equal(t, "contract-Schools---Nairobi-2025.pdf", result.FileName)
	assert.Equal(t, 100.0, pdf.sheet.Spent)
	assert.Equal(t, 25, pdf.sheet.SpentShare)
	assert.Equal(t, id, pdf.sheet.Contract.ID)
}

func TestExportSheetOutsideScope(t *testing.T) {
	svc, store, _, _, _ := newExportFixture(t)
	id := store.addContract(model.ContractStatusSent)

	_, err := svc.ExportSheet(context.Background(), model.Principal{CountryID: uuid.New()}, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Contract_1", sanitizeFileName("Contract_1"))
	assert.Equal(t, "a-b", sanitizeFileName("  a b  "))
	assert.Equal(t, "", sanitizeFileName("ÄÖ"))
}
