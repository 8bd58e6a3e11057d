package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/giga-contracts/internal/http/middleware"
	"github.com/nurpe/giga-contracts/internal/model"
	"github.com/nurpe/giga-contracts/internal/service"
)

type ContractUseCase interface {
	Create(ctx context.Context, input service.CreateContractInput, actor uuid.UUID) (*model.Contract, error)
	Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Contract, error)
}

type StatusUseCase interface {
	Transition(ctx context.Context, contractID uuid.UUID, status model.ContractStatus, actor *uuid.UUID) (*model.Contract, error)
}

type ViewUseCase interface {
	List(ctx context.Context, principal model.Principal) (*model.ContractListView, error)
	Count(ctx context.Context, principal model.Principal) (*model.ContractCountView, error)
}

type ExportUseCase interface {
	ExportList(ctx context.Context, principal model.Principal) (*service.ExportResult, error)
	ExportSheet(ctx context.Context, principal model.Principal, contractID uuid.UUID) (*service.ExportResult, error)
}

type Services struct {
	Contracts ContractUseCase
	Statuses  StatusUseCase
	Views     ViewUseCase
	Exports   ExportUseCase
}

type Handler struct {
	services Services
	log      zerolog.Logger
}

func NewHandler(services Services, log zerolog.Logger) *Handler {
	return &Handler{services: services, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/count", h.countContracts)
	protected.GET("/contracts/export", h.exportContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.GET("/contracts/:id/sheet", h.exportContractSheet)
	protected.PATCH("/contracts/:id/status", h.changeStatus)
}

type expectedMetricRequest struct {
	MetricID string  `json:"metricId" binding:"required"`
	Value    float64 `json:"value"`
}

type createContractRequest struct {
	Name             string                  `json:"name" binding:"required"`
	CountryID        string                  `json:"countryId" binding:"required"`
	CurrencyID       string                  `json:"currencyId" binding:"required"`
	FrequencyID      string                  `json:"frequencyId" binding:"required"`
	ISPID            string                  `json:"ispId" binding:"required"`
	LTAID            *string                 `json:"ltaId"`
	Budget           json.Number             `json:"budget" binding:"required"`
	GovernmentBehalf bool                    `json:"governmentBehalf"`
	StartDate        string                  `json:"startDate"`
	EndDate          string                  `json:"endDate"`
	Schools          []string                `json:"schools"`
	ExpectedMetrics  []expectedMetricRequest `json:"expectedMetrics"`
	Attachments      []string                `json:"attachments"`
	DraftID          *string                 `json:"draftId"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if err := service.AuthorizeWrite(principal); err != nil {
		h.handleError(c, err)
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.handleError(c, err)
		return
	}

	contract, err := h.services.Contracts.Create(c.Request.Context(), input, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toContractResponse(contract))
}

func (req createContractRequest) toInput() (service.CreateContractInput, error) {
	var (
		input service.CreateContractInput
		err   error
	)
	input.Name = req.Name
	input.Budget = req.Budget.String()
	input.GovernmentBehalf = req.GovernmentBehalf

	if input.CountryID, err = parseID("countryId", req.CountryID); err != nil {
		return input, err
	}
	if input.CurrencyID, err = parseID("currencyId", req.CurrencyID); err != nil {
		return input, err
	}
	if input.FrequencyID, err = parseID("frequencyId", req.FrequencyID); err != nil {
		return input, err
	}
	if input.ISPID, err = parseID("ispId", req.ISPID); err != nil {
		return input, err
	}
	if input.LTAID, err = parseOptionalID("ltaId", req.LTAID); err != nil {
		return input, err
	}
	if input.DraftID, err = parseOptionalID("draftId", req.DraftID); err != nil {
		return input, err
	}
	if input.StartDate, err = parseOptionalDate("startDate", req.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = parseOptionalDate("endDate", req.EndDate); err != nil {
		return input, err
	}
	if input.SchoolIDs, err = parseIDs("schools", req.Schools); err != nil {
		return input, err
	}
	if input.AttachmentIDs, err = parseIDs("attachments", req.Attachments); err != nil {
		return input, err
	}
	for _, metric := range req.ExpectedMetrics {
		metricID, err := parseID("expectedMetrics.metricId", metric.MetricID)
		if err != nil {
			return input, err
		}
		input.ExpectedMetrics = append(input.ExpectedMetrics, service.ExpectedMetricInput{
			MetricID: metricID,
			Value:    metric.Value,
		})
	}
	return input, nil
}

func (h *Handler) listContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	view, err := h.services.Views.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) countContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	view, err := h.services.Views.Count(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) getContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID("id", c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	contract, err := h.services.Contracts.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(contract))
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) changeStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if err := service.AuthorizeWrite(principal); err != nil {
		h.handleError(c, err)
		return
	}

	id, err := parseID("id", c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := model.ParseContractStatus(req.Status)
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: %v", service.ErrInvalidStatus, err))
		return
	}

	// Visibility is checked first so out-of-scope contracts look missing.
	if _, err := h.services.Contracts.Get(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	actor := principal.UserID
	contract, err := h.services.Statuses.Transition(c.Request.Context(), id, status, &actor)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(contract))
}

func (h *Handler) exportContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	result, err := h.services.Exports.ExportList(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) exportContractSheet(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID("id", c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.services.Exports.ExportSheet(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDependencyFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", service.ErrInvalidInput, field)
	}
	return id, nil
}

func parseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := parseID(field, value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid %s", service.ErrInvalidInput, field)
}
