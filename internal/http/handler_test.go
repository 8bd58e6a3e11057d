package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/giga-contracts/internal/http/middleware"
	"github.com/nurpe/giga-contracts/internal/metrics"
	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/service"
)

type fixedParser struct{ principal model.Principal }

func (p fixedParser) Parse(string) (model.Principal, error) { return p.principal, nil }

type fakeContracts struct {
	input   service.CreateContractInput
	actor   uuid.UUID
	created *model.Contract
	getErr  error
	err     error
}

func (f *fakeContracts) Create(_ context.Context, input service.CreateContractInput, actor uuid.UUID) (*model.Contract, error) {
	f.input = input
	f.actor = actor
	return f.created, f.err
}

func (f *fakeContracts) Get(_ context.Context, _ model.Principal, id uuid.UUID) (*model.Contract, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &model.Contract{ID: id, Name: "Contract 1", Status: model.ContractStatusSent}, nil
}

type fakeStatuses struct {
	status model.ContractStatus
	actor  *uuid.UUID
	err    error
}

func (f *fakeStatuses) Transition(_ context.Context, id uuid.UUID, status model.ContractStatus, actor *uuid.UUID) (*model.Contract, error) {
	f.status = status
	f.actor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &model.Contract{ID: id, Status: status}, nil
}

type fakeViews struct{}

func (fakeViews) List(context.Context, model.Principal) (*model.ContractListView, error) {
	return &model.ContractListView{Items: []model.ContractListItem{}, LTAs: []model.LTAGroup{}}, nil
}

func (fakeViews) Count(context.Context, model.Principal) (*model.ContractCountView, error) {
	return &model.ContractCountView{Counts: []model.StatusCount{{Status: "Draft", Count: 2}}, Total: 2}, nil
}

type fakeExports struct{}

func (fakeExports) ExportList(context.Context, model.Principal) (*service.ExportResult, error) {
	return &service.ExportResult{FileName: "contracts-20250101.xlsx", Content: []byte("xlsx")}, nil
}

func (fakeExports) ExportSheet(context.Context, model.Principal, uuid.UUID) (*service.ExportResult, error) {
	return nil, service.ErrContractNotFound
}

type testServer struct {
	router    *gin.Engine
	principal model.Principal
	contracts *fakeContracts
	statuses  *fakeStatuses
}

func newTestServer(t *testing.T, roles ...model.Role) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		principal: model.Principal{UserID: uuid.New(), Name: "FastNet", CountryID: uuid.New(), Roles: roles},
		contracts: &fakeContracts{},
		statuses:  &fakeStatuses{},
	}
	handler := NewHandler(Services{
		Contracts: ts.contracts,
		Statuses:  ts.statuses,
		Views:     fakeViews{},
		Exports:   fakeExports{},
	}, zerolog.Nop())

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.IncContractsCreated()

	ts.router = NewRouter(handler, middleware.Auth(fixedParser{principal: ts.principal}), RouterOptions{
		Environment: "test",
		Gatherer:    registry,
		Log:         zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func createBody() map[string]any {
	return map[string]any{
		"name":        "Contract 1",
		"countryId":   uuid.NewString(),
		"currencyId":  uuid.NewString(),
		"frequencyId": uuid.NewString(),
		"ispId":       uuid.NewString(),
		"budget":      1000.5,
		"startDate":   "2025-01-01",
		"endDate":     "2025-12-31",
		"schools":     []string{uuid.NewString()},
		"expectedMetrics": []map[string]any{
			{"metricId": uuid.NewString(), "value": 20},
		},
		"draftId": uuid.NewString(),
	}
}

func TestCreateContract(t *testing.T) {
	ts := newTestServer(t, model.RoleGovernment)
	ts.contracts.created = &model.Contract{ID: uuid.New(), Name: "Contract 1", Status: model.ContractStatusSent, Budget: "1000.50"}

	rec := ts.do(http.MethodPost, "/contracts", createBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, ts.principal.UserID, ts.contracts.actor)
	assert.Equal(t, "1000.5", ts.contracts.input.Budget)
	assert.Len(t, ts.contracts.input.SchoolIDs, 1)
	assert.Len(t, ts.contracts.input.ExpectedMetrics, 1)
	assert.NotNil(t, ts.contracts.input.DraftID)
	assert.Equal(t, 2025, ts.contracts.input.StartDate.Year())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Sent", resp["status"])
	assert.Equal(t, []any{}, resp["schools"])
}

func TestCreateContractErrors(t *testing.T) {
	t.Run("no role", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(http.MethodPost, "/contracts", createBody())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("bad school id", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		body := createBody()
		body["schools"] = []string{"school-1"}
		rec := ts.do(http.MethodPost, "/contracts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid input: invalid schools", errorBody(t, rec))
	})
	t.Run("missing name", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		body := createBody()
		delete(body, "name")
		rec := ts.do(http.MethodPost, "/contracts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("draft not found", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		ts.contracts.err = service.ErrDraftNotFound
		rec := ts.do(http.MethodPost, "/contracts", createBody())
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Draft not found", errorBody(t, rec))
	})
	t.Run("dependency failure hides cause", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		ts.contracts.err = service.ErrDependencyFailure
		rec := ts.do(http.MethodPost, "/contracts", createBody())
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", errorBody(t, rec))
	})
}

func TestChangeStatus(t *testing.T) {
	ts := newTestServer(t, model.RoleISP)
	id := uuid.New()

	rec := ts.do(http.MethodPatch, "/contracts/"+id.String()+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ContractStatusConfirmed, ts.statuses.status)
	require.NotNil(t, ts.statuses.actor)
	assert.Equal(t, ts.principal.UserID, *ts.statuses.actor)
}

func TestChangeStatusErrors(t *testing.T) {
	id := uuid.New().String()

	t.Run("unknown label", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		rec := ts.do(http.MethodPatch, "/contracts/"+id+"/status", map[string]string{"status": "Cancelled"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
	t.Run("not the next status", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		ts.statuses.err = service.ErrInvalidStatus
		rec := ts.do(http.MethodPatch, "/contracts/"+id+"/status", map[string]string{"status": "Completed"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
	t.Run("outside scope", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		ts.contracts.getErr = service.ErrContractNotFound
		rec := ts.do(http.MethodPatch, "/contracts/"+id+"/status", map[string]string{"status": "Confirmed"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Contract not found", errorBody(t, rec))
	})
	t.Run("bad id", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		rec := ts.do(http.MethodPatch, "/contracts/abc/status", map[string]string{"status": "Confirmed"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("unexpected error", func(t *testing.T) {
		ts := newTestServer(t, model.RoleAdmin)
		ts.statuses.err = errors.New("boom")
		rec := ts.do(http.MethodPatch, "/contracts/"+id+"/status", map[string]string{"status": "Confirmed"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", errorBody(t, rec))
	})
}

func TestReadRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/contracts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"contracts":[],"ltas":[]}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/contracts/count", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"counts":[{"status":"Draft","count":2}],"totalCount":2}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/contracts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/contracts/export", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contracts-20250101.xlsx")

	rec = ts.do(http.MethodGet, "/contracts/"+uuid.NewString()+"/sheet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contracts_created_total 1")
}
