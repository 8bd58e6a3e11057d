package model

import "github.com/google/uuid"

// ContractSummary is the row shape read for list and export views.
type ContractSummary struct {
	ID               uuid.UUID
	Name             string
	Status           ContractStatus
	ISPName          string
	CountryID        uuid.UUID
	CountryName      string
	CountryCode      string
	CountryFlagURL   string
	LTAID            *uuid.UUID
	LTAName          *string
	Budget           string
	BudgetAmount     float64
	GovernmentBehalf bool
}

type DraftSummary struct {
	ID             uuid.UUID
	Name           string
	ISPName        *string
	CountryID      *uuid.UUID
	CountryName    *string
	CountryCode    *string
	CountryFlagURL *string
	LTAID          *uuid.UUID
	LTAName        *string
	SchoolCount    int
}

type CountrySummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Code    string    `json:"code"`
	FlagURL string    `json:"flagUrl"`
}

// ConnectivityShare holds rounded percentages of a contract's schools per bucket.
type ConnectivityShare struct {
	WithoutConnection      int `json:"withoutConnection"`
	AtLeastOneBelowAverage int `json:"atLeastOneBellowAverage"`
	AllEqualOrAboveAverage int `json:"allEqualOrAboveAverage"`
}

type ListItemKind string

const (
	ListItemContract ListItemKind = "contract"
	ListItemDraft    ListItemKind = "draft"
)

type ContractListItem struct {
	ID              uuid.UUID         `json:"id"`
	Kind            ListItemKind      `json:"kind"`
	Name            string            `json:"name"`
	ISP             string            `json:"isp"`
	Status          string            `json:"status"`
	Country         *CountrySummary   `json:"country,omitempty"`
	NumberOfSchools int               `json:"numberOfSchools"`
	Connectivity    ConnectivityShare `json:"schoolsConnection"`
	BudgetSpent     *int              `json:"budget,omitempty"`
}

type LTAGroup struct {
	ID    uuid.UUID          `json:"id"`
	Name  string             `json:"name"`
	Items []ContractListItem `json:"contracts"`
}

type ContractListView struct {
	Items []ContractListItem `json:"contracts"`
	LTAs  []LTAGroup         `json:"ltas"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type ContractCountView struct {
	Counts []StatusCount `json:"counts"`
	Total  int           `json:"totalCount"`
}

// ContractSheet is the single-contract document rendered to PDF.
type ContractSheet struct {
	Contract   Contract
	Spent      float64
	SpentShare int
}
