package http

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/model"
)

type schoolResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"externalId,omitempty"`
}

type expectedMetricResponse struct {
	MetricID uuid.UUID `json:"metricId"`
	Name     string    `json:"name"`
	Unit     string    `json:"unit,omitempty"`
	Value    float64   `json:"value"`
}

type attachmentResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	URL  string    `json:"url,omitempty"`
}

type transitionResponse struct {
	Who           uuid.UUID       `json:"who"`
	InitialStatus string          `json:"initialStatus"`
	FinalStatus   string          `json:"finalStatus"`
	Data          json.RawMessage `json:"data,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type contractResponse struct {
	ID               uuid.UUID                `json:"id"`
	Name             string                   `json:"name"`
	Status           string                   `json:"status"`
	CountryID        uuid.UUID                `json:"countryId"`
	CountryName      string                   `json:"countryName,omitempty"`
	CurrencyID       uuid.UUID                `json:"currencyId"`
	CurrencyCode     string                   `json:"currencyCode,omitempty"`
	FrequencyID      uuid.UUID                `json:"frequencyId"`
	FrequencyName    string                   `json:"frequencyName,omitempty"`
	ISPID            uuid.UUID                `json:"ispId"`
	ISPName          string                   `json:"ispName,omitempty"`
	LTAID            *uuid.UUID               `json:"ltaId,omitempty"`
	LTAName          *string                  `json:"ltaName,omitempty"`
	Budget           string                   `json:"budget"`
	GovernmentBehalf bool                     `json:"governmentBehalf"`
	StartDate        *string                  `json:"startDate,omitempty"`
	EndDate          *string                  `json:"endDate,omitempty"`
	CreatedBy        uuid.UUID                `json:"createdBy"`
	CreatedAt        time.Time                `json:"createdAt"`
	Schools          []schoolResponse         `json:"schools"`
	ExpectedMetrics  []expectedMetricResponse `json:"expectedMetrics"`
	Attachments      []attachmentResponse     `json:"attachments"`
	History          []transitionResponse     `json:"history"`
}

func toContractResponse(contract *model.Contract) contractResponse {
	resp := contractResponse{
		ID:               contract.ID,
		Name:             contract.Name,
		Status:           contract.Status.String(),
		CountryID:        contract.CountryID,
		CountryName:      contract.CountryName,
		CurrencyID:       contract.CurrencyID,
		CurrencyCode:     contract.CurrencyCode,
		FrequencyID:      contract.FrequencyID,
		FrequencyName:    contract.FrequencyName,
		ISPID:            contract.ISPID,
		ISPName:          contract.ISPName,
		LTAID:            contract.LTAID,
		LTAName:          contract.LTAName,
		Budget:           contract.Budget,
		GovernmentBehalf: contract.GovernmentBehalf,
		StartDate:        formatDate(contract.StartDate),
		EndDate:          formatDate(contract.EndDate),
		CreatedBy:        contract.CreatedBy,
		CreatedAt:        contract.CreatedAt,
		Schools:          make([]schoolResponse, 0, len(contract.Schools)),
		ExpectedMetrics:  make([]expectedMetricResponse, 0, len(contract.ExpectedMetrics)),
		Attachments:      make([]attachmentResponse, 0, len(contract.Attachments)),
		History:          make([]transitionResponse, 0, len(contract.Transitions)),
	}
	for _, school := range contract.Schools {
		resp.Schools = append(resp.Schools, schoolResponse{ID: school.ID, Name: school.Name, ExternalID: school.ExternalID})
	}
	for _, metric := range contract.ExpectedMetrics {
		resp.ExpectedMetrics = append(resp.ExpectedMetrics, expectedMetricResponse{
			MetricID: metric.MetricID,
			Name:     metric.MetricName,
			Unit:     metric.MetricUnit,
			Value:    metric.Value,
		})
	}
	for _, attachment := range contract.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentResponse{ID: attachment.ID, Name: attachment.Name, URL: attachment.URL})
	}
	for _, transition := range contract.Transitions {
		item := transitionResponse{
			Who:           transition.Who,
			InitialStatus: transition.InitialStatus.String(),
			FinalStatus:   transition.FinalStatus.String(),
			CreatedAt:     transition.CreatedAt,
		}
		if len(transition.Data) > 0 {
			item.Data = json.RawMessage(transition.Data)
		}
		resp.History = append(resp.History, item)
	}
	return resp
}

func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	value := t.Format("2006-01-02")
	return &value
}
