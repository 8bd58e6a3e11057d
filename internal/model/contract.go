package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Contract struct {
	ID               uuid.UUID
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
	Status           ContractStatus
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time

	CountryName   string
	CurrencyCode  string
	FrequencyName string
	ISPName       string
	LTAName       *string

	Schools         []School           `gorm:"-"`
	ExpectedMetrics []ExpectedMetric   `gorm:"-"`
	Attachments     []Attachment       `gorm:"-"`
	Transitions     []StatusTransition `gorm:"-"`
}

type School struct {
	ID         uuid.UUID
	Name       string
	ExternalID string
	CountryID  uuid.UUID
}

type Metric struct {
	ID   uuid.UUID
	Name string
	Unit string
}

// ExpectedMetric is the target value a contract commits its schools to meet.
type ExpectedMetric struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	MetricID   uuid.UUID
	MetricName string
	MetricUnit string
	Value      float64
}

type Attachment struct {
	ID   uuid.UUID
	Name string
	URL  string
}

// StatusTransition is an append-only audit record of a lifecycle change.
type StatusTransition struct {
	ID            uuid.UUID
	ContractID    uuid.UUID
	Who           uuid.UUID
	InitialStatus ContractStatus
	FinalStatus   ContractStatus
	Data          datatypes.JSON
	CreatedAt     time.Time
}

// DraftPromotion is stored as StatusTransition.Data when a draft becomes a contract.
type DraftPromotion struct {
	DraftID       uuid.UUID `json:"draftId"`
	DraftCreation time.Time `json:"draftCreation"`
}

type Draft struct {
	ID               uuid.UUID
	Name             string
	CountryID        *uuid.UUID
	ISPID            *uuid.UUID
	LTAID            *uuid.UUID
	GovernmentBehalf bool
	Budget           *string
	SchoolIDs        datatypes.JSONSlice[uuid.UUID]
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
}

type LTA struct {
	ID               uuid.UUID
	Name             string
	CountryID        uuid.UUID
	GovernmentBehalf bool
}
